package kernels

import "fmt"

// Grayscale converts RGBA pixels in place using BT.601 luma weights.
// Alpha is preserved; a trailing partial pixel is left untouched.
func Grayscale(rgba []byte) {
	n := len(rgba) &^ 3
	for i := 0; i < n; i += 4 {
		r := float32(rgba[i])
		g := float32(rgba[i+1])
		b := float32(rgba[i+2])
		gray := byte(0.299*r + 0.587*g + 0.114*b)
		rgba[i] = gray
		rgba[i+1] = gray
		rgba[i+2] = gray
	}
}

// BoxBlur averages every pixel's RGB channels over a (2r+1)² window clamped
// to the image bounds. Alpha is preserved.
func BoxBlur(rgba []byte, width, height, radius int) error {
	if width < 0 || height < 0 || radius < 0 {
		return fmt.Errorf("invalid blur geometry %dx%d radius %d", width, height, radius)
	}
	if len(rgba) < width*height*4 {
		return fmt.Errorf("image buffer holds %d bytes, need %d", len(rgba), width*height*4)
	}

	out := make([]byte, width*height*4)
	for y := range height {
		for x := range width {
			var sumR, sumG, sumB, count uint32
			for ny := max(0, y-radius); ny <= min(height-1, y+radius); ny++ {
				for nx := max(0, x-radius); nx <= min(width-1, x+radius); nx++ {
					idx := (ny*width + nx) * 4
					sumR += uint32(rgba[idx])
					sumG += uint32(rgba[idx+1])
					sumB += uint32(rgba[idx+2])
					count++
				}
			}
			idx := (y*width + x) * 4
			out[idx] = byte(sumR / count)
			out[idx+1] = byte(sumG / count)
			out[idx+2] = byte(sumB / count)
			out[idx+3] = rgba[idx+3]
		}
	}
	copy(rgba, out)
	return nil
}

package phase

import "strings"

// Portrait renders components xk and yk of every embedding vector as an
// ASCII scatter plot. With xk=0 and yk=1 this is the classic delay plot
// x(t) against x(t+tau).
func Portrait(ps Space, xk, yk, width, height int) string {
	if ps == nil || ps.Len() == 0 || width <= 0 || height <= 0 {
		return ""
	}
	if xk < 0 || yk < 0 || xk >= ps.Dim() || yk >= ps.Dim() {
		return ""
	}

	minX, maxX := ps.At(0, xk).Float(), ps.At(0, xk).Float()
	minY, maxY := ps.At(0, yk).Float(), ps.At(0, yk).Float()
	for i := 1; i < ps.Len(); i++ {
		x, y := ps.At(i, xk).Float(), ps.At(i, yk).Float()
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i := 0; i < ps.Len(); i++ {
		x, y := ps.At(i, xk).Float(), ps.At(i, yk).Float()
		col := int((x - minX) / rangeX * float64(width-1))
		row := height - 1 - int((y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

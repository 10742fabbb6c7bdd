package wave

// span represents an inclusive column range inside a row mask.
type span struct{ start, end int }

// rowMask groups contiguous spans for a single row that requires computation.
type rowMask struct {
	y     int
	spans []span
}

// workerMask collects the row masks assigned to a worker goroutine.
type workerMask struct {
	rows []rowMask
}

// interiorRows describes every cell except the outermost ring, which stays
// pinned at zero.
func interiorRows(width, height int) []rowMask {
	if width < 3 || height < 3 {
		return nil
	}
	rows := make([]rowMask, 0, height-2)
	for y := 1; y < height-1; y++ {
		rows = append(rows, rowMask{y: y, spans: []span{{start: 1, end: width - 2}}})
	}
	return rows
}

// assignRowMasks distributes row masks across workers in round robin fashion.
func assignRowMasks(workerCount int, rows []rowMask) []workerMask {
	if workerCount < 1 {
		workerCount = 1
	}
	masks := make([]workerMask, workerCount)
	for idx, row := range rows {
		workerIdx := idx % workerCount
		masks[workerIdx].rows = append(masks[workerIdx].rows, row)
	}
	return masks
}

// processMask steps the finite difference stencil over the rows of mask and
// reports whether every value it wrote stayed finite.
func processMask(g *grid, mask *workerMask) bool {
	width := g.width
	finite := true
	for _, row := range mask.rows {
		y := row.y
		rowBase := y * width
		topBase := (y - 1) * width
		bottomBase := (y + 1) * width

		center := g.curr[rowBase : rowBase+width]
		prev := g.prev[rowBase : rowBase+width]
		top := g.curr[topBase : topBase+width]
		bottom := g.curr[bottomBase : bottomBase+width]
		nextRow := g.next[rowBase : rowBase+width]
		kx := g.kx[rowBase : rowBase+width]
		ky := g.ky[rowBase : rowBase+width]
		keep := g.keep[rowBase : rowBase+width]
		scale := g.scale[rowBase : rowBase+width]

		nextRow[0] = 0
		nextRow[width-1] = 0

		for _, sp := range row.spans {
			start := sp.start
			if start < 1 {
				start = 1
			}
			end := sp.end
			if end > width-2 {
				end = width - 2
			}

			x := start
			for ; x+1 <= end; x += 2 {
				c0 := center[x]
				lx0 := center[x-1] + center[x+1] - 2*c0
				ly0 := top[x] + bottom[x] - 2*c0
				nextRow[x] = (2*c0 - keep[x]*prev[x] + kx[x]*lx0 + ky[x]*ly0) * scale[x]

				x1 := x + 1
				c1 := center[x1]
				lx1 := center[x1-1] + center[x1+1] - 2*c1
				ly1 := top[x1] + bottom[x1] - 2*c1
				nextRow[x1] = (2*c1 - keep[x1]*prev[x1] + kx[x1]*lx1 + ky[x1]*ly1) * scale[x1]
			}
			for ; x <= end; x++ {
				c := center[x]
				lx := center[x-1] + center[x+1] - 2*c
				ly := top[x] + bottom[x] - 2*c
				nextRow[x] = (2*c - keep[x]*prev[x] + kx[x]*lx + ky[x]*ly) * scale[x]
			}
			for _, v := range nextRow[start : end+1] {
				if !(v < divergenceLimit && v > -divergenceLimit) {
					finite = false
					break
				}
			}
		}
	}
	return finite
}

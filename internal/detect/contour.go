package detect

import "github.com/paulmach/orb"

// Neighbour offsets in clockwise order starting north. Image rows grow
// downwards, so north is -y.
var moore = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

const west = 6

func mooreIndex(dx, dy int) int {
	for i, d := range moore {
		if d[0] == dx && d[1] == dy {
			return i
		}
	}
	return -1
}

// contours returns the outer border of every 8-connected foreground component
// as a closed ring in pixel coordinates.
func contours(mask *binary) []orb.Ring {
	label := make([]int32, len(mask.fg))
	var rings []orb.Ring
	var next int32
	queue := make([]int, 0, 64)
	for y := 0; y < mask.h; y++ {
		for x := 0; x < mask.w; x++ {
			i := y*mask.w + x
			if !mask.fg[i] || label[i] != 0 {
				continue
			}
			next++
			label[i] = next
			queue = append(queue[:0], i)
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				px, py := p%mask.w, p/mask.w
				for _, d := range moore {
					nx, ny := px+d[0], py+d[1]
					if !mask.at(nx, ny) {
						continue
					}
					j := ny*mask.w + nx
					if label[j] == 0 {
						label[j] = next
						queue = append(queue, j)
					}
				}
			}
			// (x, y) is the first pixel of the component in raster order, so
			// its west neighbour is background.
			rings = append(rings, trace(mask, x, y))
		}
	}
	return rings
}

// trace follows the border clockwise with Moore-neighbour tracing and stops
// once the walk would repeat its first move.
func trace(mask *binary, sx, sy int) orb.Ring {
	type pt struct{ x, y int }
	start := pt{sx, sy}
	path := []pt{start}
	cur, back := start, west
	limit := 4*len(mask.fg) + 8
	for len(path) < limit {
		found := false
		var n pt
		var d int
		for k := 1; k <= 8; k++ {
			d = (back + k) % 8
			n = pt{cur.x + moore[d][0], cur.y + moore[d][1]}
			if mask.at(n.x, n.y) {
				found = true
				break
			}
		}
		if !found {
			break
		}
		if cur == start && len(path) > 1 && n == path[1] {
			break
		}
		// The last background cell checked becomes the new backtrack.
		prev := moore[(d+7)%8]
		back = mooreIndex(cur.x+prev[0]-n.x, cur.y+prev[1]-n.y)
		path = append(path, n)
		cur = n
	}
	if len(path) > 1 && path[len(path)-1] == start {
		path = path[:len(path)-1]
	}

	ring := make(orb.Ring, 0, len(path)+1)
	for _, p := range path {
		ring = append(ring, orb.Point{float64(p.x), float64(p.y)})
	}
	return append(ring, ring[0])
}

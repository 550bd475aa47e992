package sli

import "image"

// InkAverage is the mean value of one ink over a pipette rectangle.
type InkAverage struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PixelAverages returns, per ink, the mean over rect of the ink's value
// after compositing: at each pixel the raw samples of every visible layer
// are summed and saturated at 255, and those per-pixel values are divided by
// the number of distinct pixels of rect that some visible layer covers.
// Inks are ordered C, M, Y, K, then the other inks in the order layers name
// them. A zero-area rect yields nil.
func (p *Presentation) PixelAverages(rect image.Rectangle) []InkAverage {
	if rect.Empty() {
		return nil
	}

	p.mu.Lock()
	layers := p.visibleLocked()
	p.mu.Unlock()

	clip := rect.Intersect(p.rect)
	area := clip.Dx() * clip.Dy()

	var (
		averages []InkAverage
		sums     [][]int
	)
	index := make(map[string]int)
	slot := func(name string) int {
		i, ok := index[name]
		if !ok {
			i = len(averages)
			index[name] = i
			averages = append(averages, InkAverage{Name: name})
			sums = append(sums, make([]int, area))
		}
		return i
	}
	for _, c := range p.registry.Process() {
		slot(c.Name)
	}

	covered := make([]bool, area)
	count := 0

	for _, l := range layers {
		r := l.Rect.Intersect(clip)
		if r.Empty() {
			continue
		}
		names := l.InkNames(p.registry)
		slots := make([]int, len(names))
		for j, n := range names {
			slots[j] = slot(n)
		}

		spp := l.SamplesPerPixel
		stride := l.Rect.Dx() * spp
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				c := (y-clip.Min.Y)*clip.Dx() + (x - clip.Min.X)
				if !covered[c] {
					covered[c] = true
					count++
				}
				s := (y-l.Rect.Min.Y)*stride + (x-l.Rect.Min.X)*spp
				for j, v := range l.Bitmap[s : s+spp] {
					sums[slots[j]][c] += int(v)
				}
			}
		}
	}

	if count > 0 {
		for i, pix := range sums {
			total := 0
			for _, v := range pix {
				total += min(v, 255)
			}
			averages[i].Value = float64(total) / float64(count)
		}
	}
	return averages
}

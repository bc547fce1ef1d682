package spatialindex

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// Rtree. r-tree over the bounding boxes of polygon features, items are feature indexes.
type Rtree struct {
	tr   *rtree.RTreeG[int]
	size int
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[int]
	return &Rtree{
		tr: &tr,
	}
}

// Build. insert the bounding box of every feature, bounds[i] is stored with item i.
func (rt *Rtree) Build(bounds []orb.Bound, log *zap.Logger) {
	log.Info("Building R-tree spatial index...", zap.Int("features", len(bounds)))
	for i, b := range bounds {
		rt.Insert(b, i)
		if len(bounds) >= 10 && i > 0 && i%(len(bounds)/10) == 0 {
			log.Debug("Building R-tree spatial index...", zap.Float64("progress", 100*float64(i)/float64(len(bounds))))
		}
	}
	log.Info("R-tree spatial index built.")
}

func (rt *Rtree) Insert(b orb.Bound, item int) {
	rt.tr.Insert([2]float64{b.Min.X(), b.Min.Y()}, [2]float64{b.Max.X(), b.Max.Y()}, item)
	rt.size++
}

func (rt *Rtree) Len() int {
	return rt.size
}

// Search returns the items whose bounding box intersects b, sorted ascending.
func (rt *Rtree) Search(b orb.Bound) []int {
	items := make([]int, 0, 8)
	rt.tr.Search([2]float64{b.Min.X(), b.Min.Y()}, [2]float64{b.Max.X(), b.Max.Y()},
		func(min, max [2]float64, item int) bool {
			items = append(items, item)
			return true
		})
	sort.Ints(items)
	return items
}

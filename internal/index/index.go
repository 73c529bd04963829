// Package index maintains inverted indexes over observed responses using Roaring bitmaps.
package index

import (
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Doc is the indexed view of one response, keyed by its log sequence number.
type Doc struct {
	Seq    uint32
	Host   string
	Method string
	Status int
}

// Query selects documents. Empty fields do not filter; all set fields are ANDed.
// StatusMin and StatusMax are inclusive; zero leaves that bound open.
type Query struct {
	Host      string
	Method    string
	StatusMin int
	StatusMax int
}

// Index maps hosts, methods and status codes to the sequence numbers carrying them.
type Index struct {
	mu sync.RWMutex

	all      *roaring.Bitmap
	byHost   map[string]*roaring.Bitmap
	byMethod map[string]*roaring.Bitmap
	byStatus map[int]*roaring.Bitmap
}

// New creates an empty Index.
func New() *Index {
	x := &Index{}
	x.reset()
	return x
}

// Add indexes d. Adding the same sequence twice is a no-op.
func (x *Index) Add(d Doc) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.all.Add(d.Seq)
	if host := normalizeHost(d.Host); host != "" {
		addToBitmap(x.byHost, host, d.Seq)
	}
	if method := strings.ToUpper(d.Method); method != "" {
		addToBitmap(x.byMethod, method, d.Seq)
	}
	if d.Status > 0 {
		addToBitmap(x.byStatus, d.Status, d.Seq)
	}
}

// Remove drops d from every bitmap it was added to. Empty bitmaps are deleted.
func (x *Index) Remove(d Doc) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.all.Remove(d.Seq)
	removeFromBitmap(x.byHost, normalizeHost(d.Host), d.Seq)
	removeFromBitmap(x.byMethod, strings.ToUpper(d.Method), d.Seq)
	removeFromBitmap(x.byStatus, d.Status, d.Seq)
}

// Reset drops all indexed documents.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.reset()
}

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return int(x.all.GetCardinality())
}

// Terms returns how many host, method and status bitmaps are held.
func (x *Index) Terms() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byHost) + len(x.byMethod) + len(x.byStatus)
}

// Query returns matching sequence numbers in ascending order.
func (x *Index) Query(q Query) []uint32 {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := x.all.Clone()

	if q.Host != "" {
		bm, ok := x.byHost[normalizeHost(q.Host)]
		if !ok {
			return nil
		}
		result.And(bm)
	}

	if q.Method != "" {
		bm, ok := x.byMethod[strings.ToUpper(q.Method)]
		if !ok {
			return nil
		}
		result.And(bm)
	}

	if q.StatusMin > 0 || q.StatusMax > 0 {
		statuses := roaring.New()
		for status, bm := range x.byStatus {
			if q.StatusMin > 0 && status < q.StatusMin {
				continue
			}
			if q.StatusMax > 0 && status > q.StatusMax {
				continue
			}
			statuses.Or(bm)
		}
		result.And(statuses)
	}

	if result.IsEmpty() {
		return nil
	}
	return result.ToArray()
}

func (x *Index) reset() {
	x.all = roaring.New()
	x.byHost = make(map[string]*roaring.Bitmap)
	x.byMethod = make(map[string]*roaring.Bitmap)
	x.byStatus = make(map[int]*roaring.Bitmap)
}

func addToBitmap[K comparable](index map[K]*roaring.Bitmap, key K, seq uint32) {
	bm, exists := index[key]
	if !exists {
		bm = roaring.New()
		index[key] = bm
	}
	bm.Add(seq)
}

func removeFromBitmap[K comparable](index map[K]*roaring.Bitmap, key K, seq uint32) {
	bm, exists := index[key]
	if !exists {
		return
	}
	bm.Remove(seq)
	if bm.IsEmpty() {
		delete(index, key)
	}
}

// normalizeHost lowercases and strips a default port.
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimSuffix(host, ":443")
	return strings.TrimSuffix(host, ":80")
}

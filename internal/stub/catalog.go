package stub

import (
	"bufio"
	"context"
	_ "embed"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/larek/internal/domain/product"
	"github.com/xenking/larek/internal/wire"
)

// defaultCatalog is served when no catalog file is configured.
//
//go:embed catalog.json
var defaultCatalog []byte

// Compile-time check ensuring Catalog satisfies product.Repository.
var _ product.Repository = (*Catalog)(nil)

// Catalog is an in-memory product repository. Listing order is the load
// order.
type Catalog struct {
	mu    sync.RWMutex
	items []product.Product
	byID  map[string]int
}

// NewCatalog creates a catalog holding items.
func NewCatalog(items []product.Product) *Catalog {
	c := &Catalog{}
	c.Replace(items)
	return c
}

// Replace swaps the catalog contents. Later duplicates of an ID are dropped.
func (c *Catalog) Replace(items []product.Product) {
	list := make([]product.Product, 0, len(items))
	byID := make(map[string]int, len(items))
	for _, p := range items {
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = len(list)
		list = append(list, p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items, c.byID = list, byID
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// List returns a copy of every product.
func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]product.Product, len(c.items))
	copy(out, c.items)
	return out, nil
}

// GetByID returns product.ErrNotFound for unknown IDs.
func (c *Catalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return nil, errors.Wrapf(product.ErrNotFound, "id %q", id)
	}
	p := c.items[i]
	return &p, nil
}

// LoadCatalog reads a WebLarek product listing from path. Files ending in
// ".gz" are decompressed with pgzip. An empty path loads the built-in catalog.
func LoadCatalog(path string) ([]product.Product, error) {
	if path == "" {
		return DecodeCatalog(jx.DecodeBytes(defaultCatalog))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	items, err := DecodeCatalog(jx.Decode(r, 64*1024))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return items, nil
}

// DecodeCatalog decodes a listing and checks every product has an ID and
// a title.
func DecodeCatalog(d *jx.Decoder) ([]product.Product, error) {
	l, err := wire.DecodeProductList(d)
	if err != nil {
		return nil, err
	}
	for i, p := range l.Items {
		if p.ID == "" {
			return nil, errors.Errorf("item %d: empty id", i)
		}
		if p.Title == "" {
			return nil, errors.Errorf("item %s: empty title", p.ID)
		}
	}
	return l.Items, nil
}

package properties

import (
	"context"

	"github.com/propnest/propnest-client/internal/listing"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

// API is the slice of the backend the property screens use.
type API interface {
	ListProperties(ctx context.Context, f Filters) (*listing.Page[Property], error)
	PropertyFilterOptions(ctx context.Context) (*FilterOptions, error)
}

// NewListLoader returns a loader for the property listing. Callers pass the
// full Filters on every change; the previous request is superseded.
func NewListLoader(api API, opts ...listing.Option) *listing.Loader[Filters, Property] {
	opts = append([]listing.Option{listing.WithResource("properties")}, opts...)
	return listing.New(func(ctx context.Context, f Filters) (*listing.Page[Property], error) {
		return api.ListProperties(ctx, f)
	}, opts...)
}

type catalogQuery struct{}

// Catalog loads the filter options once per Refresh and exposes the latest
// successful result.
type Catalog struct {
	loader *listing.Loader[catalogQuery, FilterOptions]
}

// NewFilterCatalog builds a Catalog over api.
func NewFilterCatalog(api API, opts ...listing.Option) *Catalog {
	opts = append([]listing.Option{listing.WithResource("filter options")}, opts...)
	loader := listing.New(func(ctx context.Context, _ catalogQuery) (*listing.Page[FilterOptions], error) {
		options, err := api.PropertyFilterOptions(ctx)
		if err != nil {
			return nil, err
		}
		if options == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "empty filter options response")
		}
		return &listing.Page[FilterOptions]{Items: []FilterOptions{*options}}, nil
	}, opts...)
	return &Catalog{loader: loader}
}

// Refresh reloads the options, superseding any pending refresh.
func (c *Catalog) Refresh() <-chan struct{} {
	return c.loader.Load(catalogQuery{})
}

// Options returns the last loaded options and whether any load has succeeded.
func (c *Catalog) Options() (FilterOptions, bool) {
	state := c.loader.State()
	if !state.Loaded || len(state.Items) == 0 {
		return FilterOptions{}, false
	}
	return state.Items[0], true
}

// Err returns the user-facing error of the last failed refresh.
func (c *Catalog) Err() string {
	return c.loader.State().Err
}

// Close cancels a pending refresh.
func (c *Catalog) Close() {
	c.loader.Close()
}

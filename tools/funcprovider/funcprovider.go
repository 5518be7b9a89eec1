// Package funcprovider serves typed Go functions as tools.
//
// The input schema of a tool is reflected from its input struct, and the
// arguments sent by the model are decoded into that struct through its json
// tags, then checked against its validate tags.
package funcprovider

import (
	"context"
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/schema"
	"github.com/effective-security/mcpchat/tools"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ErrToolNotFound is returned by CallTool for a name that was not added.
var ErrToolNotFound = errors.New("tool not found")

// Func is a tool implementation.
type Func[I any] func(ctx context.Context, in *I) (string, error)

type entry struct {
	desc tools.Descriptor
	call func(ctx context.Context, args map[string]any) (string, error)
}

// Provider is an in-process tools.Provider.
// It is safe for concurrent use.
type Provider struct {
	lock    sync.RWMutex
	entries []*entry
	byName  map[string]*entry
}

var _ tools.Provider = (*Provider)(nil)

var validate = validator.New(validator.WithRequiredStructEnabled())

// New returns an empty Provider.
func New() *Provider {
	return &Provider{
		byName: make(map[string]*entry),
	}
}

// Add adds a tool to the provider.
// The input type I must be a struct.
func Add[I any](p *Provider, name, description string, fn Func[I]) error {
	if name == "" {
		return errors.New("tool name is required")
	}
	if fn == nil {
		return errors.Newf("tool %q: function is required", name)
	}

	sc, err := schema.New(reflect.TypeFor[I]())
	if err != nil {
		return errors.WithMessagef(err, "tool %q", name)
	}
	e := &entry{
		desc: tools.Descriptor{
			Name:        name,
			Description: description,
			InputSchema: sc.Map(),
		},
		call: func(ctx context.Context, args map[string]any) (string, error) {
			in := new(I)
			if err := decode(args, in); err != nil {
				return "", errors.WithMessagef(err, "invalid arguments for %q", name)
			}
			return fn(ctx, in)
		},
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if _, ok := p.byName[name]; ok {
		return errors.Newf("tool %q: already added", name)
	}
	p.byName[name] = e
	p.entries = append(p.entries, e)
	return nil
}

// MustAdd is Add that panics on error.
func MustAdd[I any](p *Provider, name, description string, fn Func[I]) *Provider {
	if err := Add(p, name, description, fn); err != nil {
		panic(err)
	}
	return p
}

// ListTools returns the tools in the order they were added.
func (p *Provider) ListTools(_ context.Context) ([]tools.Descriptor, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	res := make([]tools.Descriptor, 0, len(p.entries))
	for _, e := range p.entries {
		res = append(res, e.desc)
	}
	return res, nil
}

// CallTool calls the tool with the arguments.
// The text returned by the function is the single text item of the result.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) (*tools.Result, error) {
	p.lock.RLock()
	e := p.byName[name]
	p.lock.RUnlock()

	if e == nil {
		return nil, errors.Wrapf(ErrToolNotFound, "%q", name)
	}

	out, err := e.call(ctx, args)
	if err != nil {
		return nil, err
	}
	return &tools.Result{
		Content: []tools.Content{tools.TextContent(out)},
	}, nil
}

func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if err = dec.Decode(args); err != nil {
		return errors.WithStack(err)
	}
	if err = validate.Struct(out); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

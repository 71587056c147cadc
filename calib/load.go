package calib

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/coa2l"
	"github.com/andreyvit/cobj/cohex"
)

type Format string

const (
	FormatA2L Format = "a2l"
	FormatS19 Format = "s19"
	FormatHex Format = "hex"
)

type Input struct {
	Name   string
	Format Format
	Data   []byte
}

type Options struct {
	Logger *slog.Logger

	// Limit caps the bytes charged while parsing each input. Zero means no
	// limit.
	Limit int64
}

// Project is one A2L description together with the firmware images it
// describes.
type Project struct {
	A2L    *cobj.Object
	Image  *cobj.Object // merged image map, nil without firmware inputs
	Index  *Index
	Blocks cohex.Blocks

	quotas []*cobj.Quota
}

type parsed struct {
	in      Input
	q       *cobj.Quota
	o       *cobj.Object
	err     error
	elapsed time.Duration
}

// Load parses every input on its own goroutine with its own quota and
// combines the results in input order: exactly one A2L input is required,
// firmware images are merged into a single map with later inputs winning
// on equal start addresses. ctx is checked before each input is parsed and
// again while merging; a parse already running is not interrupted.
func Load(ctx context.Context, inputs []Input, opt Options) (*Project, error) {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	results := make([]parsed, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := cobj.NewQuota(opt.Limit)
			if err := ctx.Err(); err != nil {
				results[i] = parsed{in: in, q: q, err: err}
				return
			}
			start := time.Now()
			o, err := parseInput(in, q)
			results[i] = parsed{in, q, o, err, time.Since(start)}
		}()
	}
	wg.Wait()

	p := &Project{}
	var err error
	for _, r := range results {
		if err == nil {
			err = ctx.Err()
		}
		if err == nil && r.err != nil {
			err = fmt.Errorf("%s: %w", r.in.Name, r.err)
		}
		if err != nil {
			cobj.Destroy(r.o)
			continue
		}
		opt.Logger.LogAttrs(ctx, slog.LevelDebug, "calib: parsed",
			slog.String("input", r.in.Name),
			slog.String("format", string(r.in.Format)),
			slog.Duration("elapsed", r.elapsed),
			slog.Int64("bytes", r.q.Used()))
		err = p.add(r)
	}
	if err == nil && p.A2L == nil {
		err = fmt.Errorf("no A2L input")
	}
	if err == nil {
		start := time.Now()
		err = p.buildIndex()
		opt.Logger.LogAttrs(ctx, slog.LevelDebug, "calib: indexed",
			slog.Duration("elapsed", time.Since(start)))
	}
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func parseInput(in Input, q *cobj.Quota) (*cobj.Object, error) {
	switch in.Format {
	case FormatA2L:
		return coa2l.Parse(in.Data, coa2l.Options{Quota: q})
	case FormatS19:
		return cohex.ParseS19(in.Data, cohex.Options{Quota: q})
	case FormatHex:
		return cohex.ParseHex(in.Data, cohex.Options{Quota: q})
	}
	return nil, fmt.Errorf("unknown input format %q", in.Format)
}

// add takes ownership of r.o.
func (p *Project) add(r parsed) error {
	if r.in.Format == FormatA2L {
		if p.A2L != nil {
			cobj.Destroy(r.o)
			return fmt.Errorf("%s: more than one A2L input", r.in.Name)
		}
		p.A2L = r.o
		p.quotas = append(p.quotas, r.q)
		return nil
	}
	if p.Image == nil {
		p.Image = r.o
		p.quotas = append(p.quotas, r.q)
		return nil
	}
	defer cobj.Destroy(r.o)
	dst := p.Image.Map()
	for key, block := range r.o.Map().All() {
		c, err := block.CloneInto(p.Image.Quota())
		if err != nil {
			return fmt.Errorf("%s: %w", r.in.Name, err)
		}
		if err := dst.Add(key, c); err != nil {
			cobj.Destroy(c)
			return fmt.Errorf("%s: %w", r.in.Name, err)
		}
	}
	return nil
}

func (p *Project) buildIndex() error {
	ix, err := NewIndex(p.A2L, p.A2L.Quota())
	if err != nil {
		return err
	}
	p.Index = ix
	if p.Image != nil {
		p.Blocks, err = cohex.NewBlocks(p.Image.Map())
	}
	return err
}

// Used returns the bytes charged for the whole project.
func (p *Project) Used() int64 {
	var n int64
	for _, q := range p.quotas {
		n += q.Used()
	}
	return n
}

func (p *Project) Close() {
	if p.Index != nil {
		p.Index.Close()
		p.Index = nil
	}
	cobj.Destroy(p.A2L)
	cobj.Destroy(p.Image)
	p.A2L, p.Image, p.Blocks = nil, nil, nil
}

// This file implements Graph, the enclosing element that lends bus-backed
// branches and owns the source-adapters linked to them.

package softgraph

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/graph"
)

// Branch is the downstream sink of one category, backed by a bus stream.
type Branch struct {
	name     string
	category graph.Category
	stream   *bus.Stream
}

// Name returns the branch name.
func (b *Branch) Name() string { return b.name }

// Category returns the media category the branch accepts.
func (b *Branch) Category() graph.Category { return b.category }

// Stream returns the bus stream subscribers attach to.
func (b *Branch) Stream() *bus.Stream { return b.stream }

// Graph is the software enclosing element of one endpoint.
type Graph struct {
	branches map[graph.Category]*Branch
	sources  *xsync.MapOf[string, *SourceAdapter]
}

// NewGraph creates a graph with one branch per category, registered in reg
// under the endpoint name. A category left out has no branch.
func NewGraph(endpoint string, reg *bus.Registry, categories ...graph.Category) *Graph {
	g := &Graph{
		branches: make(map[graph.Category]*Branch, len(categories)),
		sources:  xsync.NewMapOf[string, *SourceAdapter](),
	}
	for _, c := range categories {
		if c == graph.CategoryUnsupported {
			continue
		}
		stream, _ := reg.GetOrCreate(bus.NewStreamKey(endpoint, c.String()), bus.MessageTypeFor(c))
		g.branches[c] = &Branch{name: c.String(), category: c, stream: stream}
	}
	return g
}

// Branch returns the branch for category, or nil when none is configured.
func (g *Graph) Branch(category graph.Category) graph.Branch {
	b, ok := g.branches[category]
	if !ok {
		return nil
	}
	return b
}

// NewSourceAdapter creates a source-adapter and adds it to the graph.
func (g *Graph) NewSourceAdapter(cfg graph.SourceConfig) (graph.SourceAdapter, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("source-adapter name is required")
	}
	src := newSourceAdapter(cfg)
	if _, loaded := g.sources.LoadOrStore(cfg.Name, src); loaded {
		return nil, fmt.Errorf("source-adapter %s already exists", cfg.Name)
	}
	return src, nil
}

// LinkBranch links src to branch; the branch stream gains a publisher.
func (g *Graph) LinkBranch(src graph.SourceAdapter, branch graph.Branch) error {
	s, ok := g.sources.Load(src.Name())
	if !ok || graph.SourceAdapter(s) != src {
		return fmt.Errorf("source-adapter %s is not part of the graph", src.Name())
	}
	b, ok := branch.(*Branch)
	if !ok || g.branches[b.category] != b {
		return fmt.Errorf("branch %s is not part of the graph", branch.Name())
	}
	if err := s.link(b); err != nil {
		return fmt.Errorf("link %s to %s: %w", s.Name(), b.name, err)
	}
	if !b.stream.AttachPublisher(s.Name()) {
		s.release()
		return fmt.Errorf("link %s to %s: %w", s.Name(), b.name, graph.ErrAlreadyLinked)
	}
	return nil
}

// ReleaseSourceAdapter unlinks src from its branch and removes it from the graph.
func (g *Graph) ReleaseSourceAdapter(src graph.SourceAdapter) error {
	s, ok := g.sources.LoadAndDelete(src.Name())
	if !ok {
		return fmt.Errorf("source-adapter %s is not part of the graph", src.Name())
	}
	if b := s.release(); b != nil {
		b.stream.DetachPublisher(s.Name())
	}
	return nil
}

// SourceCount returns the number of source-adapters in the graph.
func (g *Graph) SourceCount() int {
	return g.sources.Size()
}

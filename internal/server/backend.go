// This file selects and builds the graph backend named in configuration.

package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"playerbridge/internal/config"
	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/graph"
	"playerbridge/internal/gstx"
	"playerbridge/internal/softgraph"
)

// branchCategories are the categories every endpoint gets a branch for.
var branchCategories = []graph.Category{graph.CategoryAudio, graph.CategoryVideo}

// newBackend returns the enclosing graph and the Sub-pipeline for the endpoint.
func newBackend(cfg *config.Config, registry *bus.Registry, log *logrus.Entry) (graph.Graph, graph.SubPipeline, error) {
	name := cfg.Player.Name

	switch cfg.Player.Backend {
	case config.BackendSoft:
		p, err := softgraph.New(softgraph.Options{
			Name:      name,
			Workers:   cfg.Runtime.Workers,
			SinkQueue: cfg.Runtime.SinkQueue,
			Log:       log,
		})
		if err != nil {
			return nil, nil, err
		}
		return softgraph.NewGraph(name, registry, branchCategories...), p, nil

	case config.BackendGst:
		b, err := gstx.NewBackend(gstx.Options{
			Name:       name,
			Registry:   registry,
			Categories: branchCategories,
			Log:        log,
		})
		if err != nil {
			return nil, nil, err
		}
		return b.Graph(), b.Pipeline(), nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Player.Backend)
}

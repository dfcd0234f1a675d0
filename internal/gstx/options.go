// This file defines the options shared by the GStreamer backend and its stub.

package gstx

import (
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/graph"
)

// Options configures a Backend.
type Options struct {
	Name       string // endpoint name; prefixes every element
	Registry   *bus.Registry
	Categories []graph.Category // one branch per category
	Log        *logrus.Entry
}

// This file parses synthetic:// source URIs into the stream layout the
// synthetic decoder exposes.

package softgraph

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"playerbridge/internal/core/caps"
)

// Scheme is the URI scheme served by the synthetic decoder.
const Scheme = "synthetic"

// ErrUnsupportedURI is returned for URIs the synthetic decoder cannot open.
var ErrUnsupportedURI = errors.New("unsupported uri")

// StreamKind is the kind of elementary stream a synthetic source exposes.
type StreamKind string

const (
	KindAudio   StreamKind = "audio"
	KindVideo   StreamKind = "video"
	KindText    StreamKind = "text"
	KindMeta    StreamKind = "meta"
	KindUnknown StreamKind = "unknown"
)

var kindCaps = map[StreamKind]string{
	KindAudio:   "audio/x-raw,format=S16LE,rate=48000,channels=2,layout=interleaved",
	KindVideo:   "video/x-raw,format=I420,width=320,height=240,framerate=30/1",
	KindText:    "text/x-raw,format=utf8",
	KindMeta:    "application/x-id3",
	KindUnknown: "application/octet-stream",
}

// Caps returns the capability set pads of this kind report.
func (k StreamKind) Caps() caps.Caps {
	return caps.MustParse(kindCaps[k])
}

// Source describes a synthetic source.
type Source struct {
	Name    string
	Streams []StreamKind
	Frames  int // buffers per stream before its pad is removed; 0 = endless
	FPS     int // 0 = unpaced
	Size    int // payload bytes per buffer
}

// ParseURI parses synthetic://<name>?streams=audio,video&frames=N&fps=F&size=B.
func ParseURI(raw string) (Source, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrUnsupportedURI, err)
	}
	if u.Scheme != Scheme {
		return Source{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedURI, u.Scheme)
	}

	src := Source{Name: u.Host, Size: 64}
	if src.Name == "" {
		src.Name = strings.Trim(u.Opaque+u.Path, "/")
	}

	q := u.Query()
	streams := q.Get("streams")
	if streams == "" {
		streams = "audio,video"
	}
	for _, s := range strings.Split(streams, ",") {
		kind := StreamKind(strings.TrimSpace(s))
		if _, ok := kindCaps[kind]; !ok {
			return Source{}, fmt.Errorf("%w: stream kind %q", ErrUnsupportedURI, s)
		}
		src.Streams = append(src.Streams, kind)
	}

	for key, dst := range map[string]*int{"frames": &src.Frames, "fps": &src.FPS, "size": &src.Size} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Source{}, fmt.Errorf("%w: %s=%q", ErrUnsupportedURI, key, v)
		}
		*dst = n
	}
	return src, nil
}

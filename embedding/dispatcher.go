package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

var errNoEncoder = errors.New("no encoder configured")

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Dim, when positive, rejects encoder output of any other length.
	Dim    int
	Logger logging.Logger
}

// Dispatcher decides which encoder a request is routed to.
type Dispatcher struct {
	image  core.ImageEncoder
	text   core.TextEncoder
	dim    int
	logger logging.Logger
}

// NewDispatcher builds a dispatcher over the given encoders. Either encoder
// may be nil; requests routed to a missing encoder yield an absent embedding.
func NewDispatcher(image core.ImageEncoder, text core.TextEncoder, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{image: image, text: text, dim: opts.Dim, logger: logging.OrNoOp(opts.Logger)}
}

// Embed returns the embedding for req, or nil when the request has no
// embeddable field or encoding fails. It never returns an error.
func (d *Dispatcher) Embed(ctx context.Context, req core.Request) core.Embedding {
	var (
		path string
		emb  core.Embedding
		err  error
	)

	switch {
	case req.HasImage():
		path = "image"
		emb, err = d.encodeImage(ctx, req.ImageURL)
	case req.HasText():
		path = "text"
		emb, err = d.encodeText(ctx, req.Text)
	default:
		return nil
	}

	if err == nil && d.dim > 0 && len(emb) != d.dim {
		err = fmt.Errorf("encoder returned %d components, expected %d", len(emb), d.dim)
	}
	if err == nil && len(emb) == 0 {
		err = errors.New("encoder returned an empty embedding")
	}
	if err != nil {
		d.logger.Warn("embedding.failed", "path", path, "error", err.Error())
		return nil
	}

	d.logger.Debug("embedding.ok", "path", path, "dim", len(emb))
	return emb
}

func (d *Dispatcher) encodeImage(ctx context.Context, url string) (emb core.Embedding, err error) {
	if d.image == nil {
		return nil, errNoEncoder
	}
	defer recoverEncoder(&emb, &err)
	return d.image.EncodeImage(ctx, url)
}

func (d *Dispatcher) encodeText(ctx context.Context, text string) (emb core.Embedding, err error) {
	if d.text == nil {
		return nil, errNoEncoder
	}
	defer recoverEncoder(&emb, &err)
	return d.text.EncodeText(ctx, text)
}

// recoverEncoder turns an encoder panic into an ordinary encoding failure.
func recoverEncoder(emb *core.Embedding, err *error) {
	if rec := recover(); rec != nil {
		*emb = nil
		*err = fmt.Errorf("encoder panic: %v", rec)
	}
}

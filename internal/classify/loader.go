package classify

import (
	"context"
	"sync"
)

// Loader guards classifier construction so the model is loaded at most once
// per process lifetime. Concurrent first uses block on the same construction;
// afterwards the handle is shared read-only. A failed construction is not
// cached: a cancelled warmup or a transient scorer failure leaves the loader
// empty so the next use tries again.
type Loader struct {
	mu         sync.Mutex
	construct  func(ctx context.Context) (Classifier, error)
	classifier Classifier
}

// NewLoader wraps a construction function in load-once-on-success semantics.
func NewLoader(construct func(ctx context.Context) (Classifier, error)) *Loader {
	return &Loader{construct: construct}
}

// Get returns the shared classifier, constructing it on first use.
func (l *Loader) Get(ctx context.Context) (Classifier, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.classifier != nil {
		return l.classifier, nil
	}

	classifier, err := l.construct(ctx)
	if err != nil {
		return nil, err
	}
	l.classifier = classifier
	return classifier, nil
}

// Classify makes Loader usable wherever a Classifier is expected, deferring
// the expensive model load to the first scored clip.
func (l *Loader) Classify(ctx context.Context, audioPath string) (Prediction, error) {
	classifier, err := l.Get(ctx)
	if err != nil {
		return Prediction{}, err
	}
	return classifier.Classify(ctx, audioPath)
}

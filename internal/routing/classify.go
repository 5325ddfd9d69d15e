package routing

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// Kinded is implemented by errors that know their own kind.
type Kinded interface {
	ErrorKind() domain.ErrorKind
}

// Classifier maps a load error to a ClassifiedError.
type Classifier interface {
	Classify(err error) *domain.ClassifiedError
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(err error) *domain.ClassifiedError

// Classify calls f(err).
func (f ClassifierFunc) Classify(err error) *domain.ClassifiedError {
	return f(err)
}

// DefaultClassifier classifies by tag, never by error type hierarchy.
var DefaultClassifier Classifier = ClassifierFunc(ClassifyError)

// ClassifyError determines the kind of a load error.
//
// Order:
//  1. a *domain.ClassifiedError in the chain keeps its kind
//  2. any error in the chain implementing Kinded
//  3. deadline/timeout signals become Timeout
//  4. everything else is Unclassified, with the original error kept
func ClassifyError(err error) *domain.ClassifiedError {
	if err == nil {
		return domain.Errorf(domain.KindUnclassified, "nil error")
	}

	var ce *domain.ClassifiedError
	if errors.As(err, &ce) {
		if normalize(ce.Kind) != ce.Kind {
			return &domain.ClassifiedError{Kind: domain.KindUnclassified, Message: ce.Message, Err: ce}
		}
		return ce
	}

	var kinded Kinded
	if errors.As(err, &kinded) {
		return &domain.ClassifiedError{Kind: normalize(kinded.ErrorKind()), Message: err.Error(), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewError(domain.KindTimeout, err)
	}

	return domain.NewError(domain.KindUnclassified, err)
}

func normalize(k domain.ErrorKind) domain.ErrorKind {
	for _, known := range domain.Kinds {
		if k == known {
			return k
		}
	}
	return domain.KindUnclassified
}

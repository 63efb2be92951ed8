package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookupErrorUnwrapsTimeout(t *testing.T) {
	sel := Selector{Name: "connect button", CSS: "button", Text: "Connect"}
	err := fmt.Errorf("connect: %w", &LookupError{Selector: sel, Timeout: 10 * time.Second, Err: ErrTimeout})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "waited 10s for connect button")

	var lookup *LookupError
	assert.True(t, errors.As(err, &lookup))
	assert.Equal(t, "connect button", lookup.Selector.Name)
}

func TestLookupErrorKeepsCancellation(t *testing.T) {
	err := &LookupError{Selector: Selector{Name: "x"}, Err: context.Canceled}
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestSelectorString(t *testing.T) {
	assert.Equal(t, "feed link (xpath //a)", Selector{Name: "feed link", XPath: "//a"}.String())
	assert.Equal(t, "connect (button with text /Connect/)", Selector{Name: "connect", CSS: "button", Text: "Connect"}.String())
	assert.Equal(t, "username (#username)", Selector{Name: "username", CSS: "#username"}.String())
}

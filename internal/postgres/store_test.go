package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"territory-planner/internal/database"
)

var _ database.DataStore = (*Store)(nil)

func TestNewRejectsMalformedDSN(t *testing.T) {
	_, err := New(context.Background(), "host=localhost port=notaport", nil)
	assert.Error(t, err)
}

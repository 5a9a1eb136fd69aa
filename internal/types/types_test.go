package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "280 UAH", Money{Amount: 280, Currency: "UAH"}.String())
	assert.Equal(t, "120 UAH", Money{Amount: 120}.String())
}

func TestPointString(t *testing.T) {
	assert.Equal(t, "50.450100,30.523400", Point{Lat: 50.4501, Lng: 30.5234}.String())
}

package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportForwardsToReporter(t *testing.T) {
	assert := assert.New(t)

	var got [][2]int
	r := Func(func(completed, total int) {
		got = append(got, [2]int{completed, total})
	})

	Report(r, 1, 3)
	Report(r, 3, 3)

	assert.Equal([][2]int{{1, 3}, {3, 3}}, got)
}

func TestReportTolerantOfNil(t *testing.T) {
	assert.NotPanics(t, func() {
		Report(nil, 1, 2)
	})
}

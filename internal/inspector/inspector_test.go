package inspector

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcelog-go/pager/internal/bucket"
	"github.com/mcelog-go/pager/internal/pagetable"
)

func TestDumpEmptyTableWritesNothing(t *testing.T) {
	tb, err := pagetable.New(4, 2, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, tb, bucket.Config{Threshold: 1, AgeTime: time.Minute}))

	assert.Empty(t, buf.String())
}

func TestDumpWritesHeaderAndRecords(t *testing.T) {
	tb, err := pagetable.New(4, 2, nil)
	require.NoError(t, err)

	cfg := bucket.Config{Threshold: 10, AgeTime: time.Minute}

	rec, err := tb.Insert(0x1000)
	require.NoError(t, err)
	rec.ErrorCount = 3
	rec.Bucket.Account(cfg, 3, time.Unix(0, 0))
	rec.Triggered = true

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, tb, cfg))

	want := "Per page corrected memory statistics:\n0x1000: total 3 seen \"3 in 1m0s\" online triggered\n"
	assert.Equal(t, want, buf.String())
}

func TestDumpMultipleRecordsInAddressOrder(t *testing.T) {
	tb, err := pagetable.New(4, 2, nil)
	require.NoError(t, err)

	cfg := bucket.Config{Threshold: 10, AgeTime: time.Minute}

	_, err = tb.Insert(0x2000)
	require.NoError(t, err)
	_, err = tb.Insert(0x1000)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, tb, cfg))

	want := "Per page corrected memory statistics:\n" +
		"0x1000: total 0 seen \"0 in 1m0s\" online\n" +
		"0x2000: total 0 seen \"0 in 1m0s\" online\n"
	assert.Equal(t, want, buf.String())
}

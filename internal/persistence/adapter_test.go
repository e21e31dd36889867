package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nevelline/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingKV struct {
	m      sync.Mutex
	getErr error
	setErr error
	sets   int
}

func (f *failingKV) Get(context.Context, string) ([]byte, error) {
	return nil, f.getErr
}

func (f *failingKV) Set(context.Context, string, []byte) error {
	f.m.Lock()
	defer f.m.Unlock()
	f.sets++
	return f.setErr
}

func (f *failingKV) Delete(context.Context, string) error {
	return nil
}

func (f *failingKV) setCount() int {
	f.m.Lock()
	defer f.m.Unlock()
	return f.sets
}

// slowKV delays its first Set, signalling started when that write begins.
type slowKV struct {
	*MemoryKV
	delay   time.Duration
	started chan struct{}
	once    sync.Once
}

func (s *slowKV) Set(ctx context.Context, key string, value []byte) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.started)
		time.Sleep(s.delay)
	}
	return s.MemoryKV.Set(ctx, key, value)
}

func sampleLines() []domain.LineItem {
	return []domain.LineItem{
		{ProductID: "shirt-1", VariantKey: "red", Name: "Shirt", UnitPrice: 5000, Quantity: 3},
		{ProductID: "cap-9", Name: "Cap", UnitPrice: 1200, Quantity: 1},
	}
}

func closeAdapter(t *testing.T, a *Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
}

func TestAdapter_RoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, Key("s1"), zap.NewNop())

	a.Save(sampleLines())
	closeAdapter(t, a)

	b := NewAdapter(kv, Key("s1"), zap.NewNop())
	defer closeAdapter(t, b)
	assert.Equal(t, sampleLines(), b.Load(context.Background()))
}

func TestAdapter_LoadMissingIsEmpty(t *testing.T) {
	a := NewAdapter(NewMemoryKV(), Key("nobody"), zap.NewNop())
	defer closeAdapter(t, a)

	lines := a.Load(context.Background())
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestAdapter_LoadCorruptedIsEmpty(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), Key("s1"), []byte(`[{"productId":`)))

	core, logs := observer.New(zapcore.WarnLevel)
	a := NewAdapter(kv, Key("s1"), zap.New(core))
	defer closeAdapter(t, a)

	assert.Empty(t, a.Load(context.Background()))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "corrupted")
}

func TestAdapter_LoadNullIsEmpty(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), Key("s1"), []byte(`null`)))
	a := NewAdapter(kv, Key("s1"), zap.NewNop())
	defer closeAdapter(t, a)

	lines := a.Load(context.Background())
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestAdapter_LoadBackendErrorIsEmpty(t *testing.T) {
	a := NewAdapter(&failingKV{getErr: errors.New("connection refused")}, Key("s1"), zap.NewNop())
	defer closeAdapter(t, a)

	assert.Empty(t, a.Load(context.Background()))
}

func TestAdapter_SaveFailureIsLoggedOnly(t *testing.T) {
	kv := &failingKV{setErr: errors.New("disk full")}
	core, logs := observer.New(zapcore.WarnLevel)
	a := NewAdapter(kv, Key("s1"), zap.New(core))

	a.Save(sampleLines())
	closeAdapter(t, a)

	assert.GreaterOrEqual(t, kv.setCount(), 1)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("cart save failed").Len() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestAdapter_LastWriteWins(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, Key("s1"), zap.NewNop())

	for i := 1; i <= 20; i++ {
		a.Save([]domain.LineItem{{ProductID: "p", UnitPrice: 1, Quantity: i}})
	}
	closeAdapter(t, a)

	b := NewAdapter(kv, Key("s1"), zap.NewNop())
	defer closeAdapter(t, b)
	lines := b.Load(context.Background())
	require.Len(t, lines, 1)
	assert.Equal(t, 20, lines[0].Quantity)
}

func TestAdapter_SaveIsAsync(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, Key("s1"), zap.NewNop())
	defer closeAdapter(t, a)

	a.Save(sampleLines())

	require.Eventually(t, func() bool {
		_, err := kv.Get(context.Background(), Key("s1"))
		return err == nil
	}, time.Second, 10*time.Millisecond, "cart was not written")
}

func TestAdapter_SaveAfterCloseWritesInline(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, Key("s1"), zap.NewNop())
	closeAdapter(t, a)

	a.Save(sampleLines())

	_, err := kv.Get(context.Background(), Key("s1"))
	assert.NoError(t, err)
}

func TestAdapter_SaveAfterCloseLandsAfterPendingWrite(t *testing.T) {
	kv := &slowKV{MemoryKV: NewMemoryKV(), delay: 200 * time.Millisecond, started: make(chan struct{})}
	a := NewAdapter(kv, Key("s1"), zap.NewNop())

	a.Save([]domain.LineItem{{ProductID: "p", UnitPrice: 1, Quantity: 1}})
	<-kv.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)

	a.Save([]domain.LineItem{{ProductID: "p", UnitPrice: 1, Quantity: 2}})

	b := NewAdapter(kv, Key("s1"), zap.NewNop())
	defer closeAdapter(t, b)
	lines := b.Load(context.Background())
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAdapter_EmptyCartDeletesKey(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, Key("s1"), zap.NewNop())
	defer closeAdapter(t, a)

	a.Save(sampleLines())
	require.Eventually(t, func() bool {
		_, err := kv.Get(context.Background(), Key("s1"))
		return err == nil
	}, time.Second, 10*time.Millisecond)

	a.Save([]domain.LineItem{})
	require.Eventually(t, func() bool {
		_, err := kv.Get(context.Background(), Key("s1"))
		return errors.Is(err, ErrNotFound)
	}, time.Second, 10*time.Millisecond)

	assert.Empty(t, a.Load(context.Background()))
}

func TestKey_Format(t *testing.T) {
	assert.Equal(t, "nevelline_cart:abc", Key("abc"))
}

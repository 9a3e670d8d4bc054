package dao

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct{ n int }

func TestRegistryBuildsOncePerName(t *testing.T) {
	calls := 0
	r := NewRegistry(map[string]Factory{
		"CountingDAO": func() (any, error) {
			calls++
			return &countingRepo{n: calls}, nil
		},
	})

	a, err := r.Get("CountingDAO")
	require.NoError(t, err)
	b, err := r.Get("CountingDAO")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestRegistryUnknownName(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Get("MissingDAO")
	require.ErrorIs(t, err, ErrUnknownDAO)
	assert.Panics(t, func() { r.MustGet("MissingDAO") })
}

func TestRegistryFactoryErrorIsNotCached(t *testing.T) {
	fail := true
	r := NewRegistry(map[string]Factory{
		"FlakyDAO": func() (any, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return &countingRepo{}, nil
		},
	})

	_, err := r.Get("FlakyDAO")
	require.Error(t, err)

	fail = false
	inst, err := r.Get("FlakyDAO")
	require.NoError(t, err)
	assert.IsType(t, &countingRepo{}, inst)
}

func TestRegistryRegisterOverrides(t *testing.T) {
	r := NewRegistry(map[string]Factory{
		"CountingDAO": func() (any, error) { return &countingRepo{n: 1}, nil },
	})
	original := r.MustGet("CountingDAO")

	stub := &countingRepo{n: 42}
	prev, ok := r.Register("CountingDAO", stub)
	assert.True(t, ok)
	assert.Same(t, original, prev)

	got, err := Lookup[*countingRepo](r, "CountingDAO")
	require.NoError(t, err)
	assert.Equal(t, 42, got.n)

	_, ok = r.Register("ExtraDAO", &countingRepo{})
	assert.False(t, ok)
	assert.Equal(t, []string{"CountingDAO", "ExtraDAO"}, r.Names())
}

func TestLookupWrongType(t *testing.T) {
	r := NewRegistry(map[string]Factory{
		"CountingDAO": func() (any, error) { return &countingRepo{}, nil },
	})

	_, err := Lookup[string](r, "CountingDAO")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CountingDAO")
}

type serviceOf struct{ repo *countingRepo }

func TestRegistryFactoryResolvesOtherNames(t *testing.T) {
	var r *Registry
	r = NewRegistry(map[string]Factory{
		"CountingDAO": func() (any, error) { return &countingRepo{n: 7}, nil },
		"ServiceDAO": func() (any, error) {
			dep, err := Lookup[*countingRepo](r, "CountingDAO")
			if err != nil {
				return nil, err
			}
			return &serviceOf{repo: dep}, nil
		},
	})

	done := make(chan *serviceOf, 1)
	go func() {
		svc, err := Lookup[*serviceOf](r, "ServiceDAO")
		assert.NoError(t, err)
		done <- svc
	}()

	select {
	case svc := <-done:
		require.NotNil(t, svc)
		assert.Same(t, r.MustGet("CountingDAO"), svc.repo)
	case <-time.After(5 * time.Second):
		t.Fatal("nested lookup did not return")
	}
}

func TestRegistryConcurrentGetSharesOneInstance(t *testing.T) {
	r := NewRegistry(map[string]Factory{
		"CountingDAO": func() (any, error) { return &countingRepo{}, nil },
	})

	const n = 16
	got := make([]any, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = r.MustGet("CountingDAO")
		}()
	}
	wg.Wait()
	for _, inst := range got {
		assert.Same(t, got[0], inst)
	}
}

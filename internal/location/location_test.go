package location

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `{
  "Bagmati": {
    "Kathmandu": ["Kathmandu Metropolitan", "Kirtipur"],
    "Lalitpur": {"b": "Mahalaxmi", "a": "Lalitpur Metropolitan"}
  },
  "Gandaki": {
    "Kaski": ["Pokhara"]
  }
}`

func mustTable(t *testing.T) *Table {
	t.Helper()
	table, err := ParseTable(json.RawMessage(sampleTable))
	require.NoError(t, err)
	return table
}

func TestParseTable_FlattensMapLevel(t *testing.T) {
	table := mustTable(t)

	assert.Equal(t, []string{"Bagmati", "Gandaki"}, table.Provinces())
	assert.Equal(t, []string{"Kathmandu", "Lalitpur"}, table.Districts("Bagmati"))
	assert.Equal(t, []string{"Lalitpur Metropolitan", "Mahalaxmi"}, table.Municipalities("Bagmati", "Lalitpur"))
	assert.Equal(t, []string{"Kathmandu Metropolitan", "Kirtipur"}, table.Municipalities("Bagmati", "Kathmandu"))
}

func TestParseTable_Invalid(t *testing.T) {
	_, err := ParseTable(json.RawMessage(`["not", "a", "table"]`))
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = ParseTable(json.RawMessage(`{"P": {"D": 42}}`))
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestSelector_ProvinceResetsLowerLevels(t *testing.T) {
	s := NewSelector(mustTable(t), Selection{})

	require.NoError(t, s.SelectProvince("Bagmati"))
	require.NoError(t, s.SelectDistrict("Kathmandu"))
	require.NoError(t, s.SelectMunicipality("Kirtipur"))

	require.NoError(t, s.SelectProvince("Gandaki"))
	state := s.State()
	assert.Equal(t, "Gandaki", state.Province)
	assert.Empty(t, state.District)
	assert.Empty(t, state.Municipality)
	assert.Nil(t, s.MunicipalityOptions())
	assert.Equal(t, []string{"Kaski"}, s.DistrictOptions())
}

func TestSelector_DistrictResetsMunicipality(t *testing.T) {
	s := NewSelector(mustTable(t), Selection{})

	require.NoError(t, s.SelectProvince("Bagmati"))
	require.NoError(t, s.SelectDistrict("Kathmandu"))
	require.NoError(t, s.SelectMunicipality("Kirtipur"))

	require.NoError(t, s.SelectDistrict("Lalitpur"))
	assert.Empty(t, s.State().Municipality)
	assert.Equal(t, []string{"Lalitpur Metropolitan", "Mahalaxmi"}, s.MunicipalityOptions())
}

func TestSelector_UnknownValues(t *testing.T) {
	s := NewSelector(mustTable(t), Selection{})

	assert.ErrorIs(t, s.SelectProvince("Atlantis"), ErrUnknownProvince)
	assert.ErrorIs(t, s.SelectDistrict("Kathmandu"), ErrUnknownDistrict)

	require.NoError(t, s.SelectProvince("Bagmati"))
	require.NoError(t, s.SelectDistrict("Kathmandu"))
	assert.ErrorIs(t, s.SelectMunicipality("Pokhara"), ErrUnknownMunicipality)
	assert.Equal(t, "Kathmandu", s.State().District)
}

func TestSelector_Pin(t *testing.T) {
	s := NewSelector(mustTable(t), Selection{})

	assert.ErrorIs(t, s.SetPin(91, 0), ErrInvalidPin)
	assert.Nil(t, s.State().Pin)

	require.NoError(t, s.SetPin(27.7, 85.3))
	addr := s.Apply(domain.ShippingAddress{Address: "Street 1"})
	require.NotNil(t, addr.Location)
	assert.Equal(t, 27.7, addr.Location.Lat)
	assert.Equal(t, "Street 1", addr.Address)

	s.ClearPin()
	addr = s.Apply(addr)
	assert.Nil(t, addr.Location)
}

type fakeSource struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakeSource) GetLocations(ctx context.Context) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("storefront down")
	}
	return json.RawMessage(sampleTable), nil
}

func TestLoader_CachesSuccess(t *testing.T) {
	src := &fakeSource{}
	l := NewLoader(src, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Table(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := l.Table(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, src.calls.Load(), int32(10))

	before := src.calls.Load()
	_, err = l.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, src.calls.Load())
}

func TestLoader_DoesNotCacheFailure(t *testing.T) {
	src := &fakeSource{}
	src.fail.Store(true)
	l := NewLoader(src, logger.Discard())

	_, err := l.Table(context.Background())
	require.Error(t, err)

	src.fail.Store(false)
	table, err := l.Table(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Provinces(), 2)
	assert.Equal(t, int32(2), src.calls.Load())
}

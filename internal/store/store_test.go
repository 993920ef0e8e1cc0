package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/moneymind/internal/user"
)

type failingBackend struct {
	getErr error
	putErr error
	puts   int
}

func (f *failingBackend) Name() string { return "failing" }

func (f *failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, f.getErr
}

func (f *failingBackend) Put(context.Context, string, []byte) error {
	f.puts++
	return f.putErr
}

func sampleRecord(id string) *user.Record {
	rec := user.New(id)
	name := "Meera"
	rec.Profile.Name = &name
	rec.SetParameter(user.IncomeSource, "Salary")
	rec.ConversationState.AwaitQuestion(user.IncomeStability)
	rec.AddNewsTopic("gold")
	rec.AppendQnA("what is ppf", "a savings scheme", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.AppendPortfolio(user.PortfolioSuggestion{
		Request:            "suggest a portfolio",
		RiskCategoryAtTime: user.ModerateRiskTolerance,
		RiskScoreAtTime:    60,
		Portfolio:          sampleAllocation(),
	})
	return rec
}

// sampleAllocation has asset names whose generated order differs from both
// alphabetical and length order
func sampleAllocation() user.Allocation {
	return user.Allocation{
		Low: &user.AllocationBucket{Percentage: 40, Breakdown: user.Breakdown{
			{Asset: "Public Provident Fund", Percentage: 25},
			{Asset: "Fixed Deposits", Percentage: 15},
		}},
		Medium: &user.AllocationBucket{Percentage: 40, Breakdown: user.Breakdown{
			{Asset: "Large cap fund", Percentage: 20},
			{Asset: "Gold ETF", Percentage: 5},
			{Asset: "Balanced advantage fund", Percentage: 15},
		}},
		High: &user.AllocationBucket{Percentage: 20, Breakdown: user.Breakdown{
			{Asset: "Small cap fund", Percentage: 12},
			{Asset: "Crypto", Percentage: 8},
		}},
	}
}

func holdingNames(b *user.AllocationBucket) []string {
	var names []string
	for _, h := range b.Breakdown {
		names = append(names, h.Asset)
	}
	return names
}

// assertAllocationOrder checks every bucket kept its generated holding order
func assertAllocationOrder(t *testing.T, got *user.Record) {
	t.Helper()
	last, ok := got.LastPortfolio()
	require.True(t, ok)
	want := sampleAllocation()
	assert.Equal(t, holdingNames(want.Low), holdingNames(last.Portfolio.Low))
	assert.Equal(t, holdingNames(want.Medium), holdingNames(last.Portfolio.Medium))
	assert.Equal(t, holdingNames(want.High), holdingNames(last.Portfolio.High))
	assert.Equal(t, want.Medium.Breakdown, last.Portfolio.Medium.Breakdown)
}

// exerciseStore runs the shared contract against any backend
func exerciseStore(t *testing.T, s *DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("first load creates and persists default", func(t *testing.T) {
		rec := s.Load(ctx, "new-user")
		assert.Equal(t, "new-user", rec.UserID)
		assert.Empty(t, rec.History.QnALog)

		_, err := s.Backend().Get(ctx, "new-user")
		assert.NoError(t, err)
	})

	t.Run("round trip", func(t *testing.T) {
		rec := sampleRecord("u1")
		require.True(t, s.Save(ctx, "u1", rec))

		got := s.Load(ctx, "u1")
		assert.Equal(t, "Meera", got.DisplayName(""))
		v, _ := got.Profile.RiskParameters.Get(user.IncomeSource)
		assert.Equal(t, "Salary", v)
		pending, ok := got.ConversationState.PendingQuestion()
		require.True(t, ok)
		assert.Equal(t, user.IncomeStability, pending)
		assert.Equal(t, []string{"gold"}, got.Preferences.NewsInteractionTopics)
		require.Len(t, got.History.QnALog, 1)
		assert.Equal(t, rec.History.QnALog[0].ID, got.History.QnALog[0].ID)
		assertAllocationOrder(t, got)
	})

	t.Run("save rewrites mismatched user id", func(t *testing.T) {
		rec := sampleRecord("someone-else")
		require.True(t, s.Save(ctx, "u2", rec))
		assert.Equal(t, "u2", rec.UserID)
		assert.Equal(t, "u2", s.Load(ctx, "u2").UserID)
	})

	t.Run("corrupt document is not overwritten", func(t *testing.T) {
		require.NoError(t, s.Backend().Put(ctx, "broken", []byte("{not json")))

		rec := s.Load(ctx, "broken")
		assert.Equal(t, "broken", rec.UserID)

		raw, err := s.Backend().Get(ctx, "broken")
		require.NoError(t, err)
		assert.Equal(t, "{not json", string(raw))
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	_, err = os.Stat(filepath.Join(dir, "user_u1_data.json"))
	assert.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "user_u1_data.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"user_id\": \"u1\"")
	assert.True(t, json.Valid(raw))

	leftovers, err := filepath.Glob(filepath.Join(dir, ".tmp-user-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSafeID(t *testing.T) {
	tests := map[string]string{
		"whatsapp:+919876543210": "whatsapp919876543210",
		"../../etc/passwd":       "etcpasswd",
		"user_1-a":               "user_1-a",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeID(in), in)
	}

	b := &FileBackend{dir: "/data"}
	assert.Equal(t, "/data/user_u1_data.json", b.Path("u1"))
	assert.Regexp(t, `^/data/user_whatsapp919876543210-[0-9a-f]{8}_data\.json$`, b.Path("whatsapp:+919876543210"))
}

func TestFileBackend_SanitisedIDsDoNotCollide(t *testing.T) {
	b := &FileBackend{dir: "/data"}
	ids := []string{"whatsapp919876543210", "whatsapp:+919876543210", "whatsapp+919876543210", "+919876543210", "919876543210"}

	seen := map[string]string{}
	for _, id := range ids {
		p := b.Path(id)
		prev, dup := seen[p]
		assert.False(t, dup, "%q and %q share %s", prev, id, p)
		seen[p] = id
	}
	assert.Equal(t, b.Path("+91 98"), b.Path("+91 98"))
}

func TestFileStore_DistinctRecordsForSimilarIDs(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	a := s.Load(ctx, "+919876543210")
	a.SetParameter(user.IncomeSource, "Business")
	require.True(t, s.Save(ctx, "+919876543210", a))

	b := s.Load(ctx, "919876543210")
	assert.Equal(t, "919876543210", b.UserID)
	_, answered := b.Profile.RiskParameters.Get(user.IncomeSource)
	assert.False(t, answered)

	got := s.Load(ctx, "+919876543210")
	v, ok := got.Profile.RiskParameters.Get(user.IncomeSource)
	require.True(t, ok)
	assert.Equal(t, "Business", v)
}

func TestDocumentStore_RejectsUnusableIDs(t *testing.T) {
	for _, id := range []string{"", "+++", "../", " : "} {
		t.Run(id, func(t *testing.T) {
			b := NewMemoryBackend()
			s := New(b)

			rec := s.Load(context.Background(), id)
			require.NotNil(t, rec)
			assert.Equal(t, id, rec.UserID)
			assert.False(t, s.Save(context.Background(), id, rec))
			assert.Zero(t, b.Len())
		})
	}
}

func TestLoad_ReadFailureReturnsDefaultWithoutSaving(t *testing.T) {
	b := &failingBackend{getErr: errors.New("disk on fire")}
	rec := New(b).Load(context.Background(), "u1")

	assert.Equal(t, "u1", rec.UserID)
	assert.Zero(t, b.puts)
}

func TestSave_Failures(t *testing.T) {
	b := &failingBackend{getErr: ErrNotFound, putErr: errors.New("read-only")}
	s := New(b)

	assert.False(t, s.Save(context.Background(), "u1", user.New("u1")))
	assert.False(t, s.Save(context.Background(), "u1", nil))

	// a failed first-contact save still yields a usable record
	rec := s.Load(context.Background(), "u1")
	assert.Equal(t, "u1", rec.UserID)
}

func TestLoad_NormalizesPartialDocument(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Put(context.Background(), "old", []byte(`{"user_id":"old","profile":{"name":"Dev"}}`)))

	rec := New(b).Load(context.Background(), "old")
	assert.Equal(t, "Dev", rec.DisplayName(""))
	assert.NotNil(t, rec.History.NewsLog)
	assert.NotNil(t, rec.Preferences.QnATopicsInterest)
	assert.NotNil(t, rec.ConversationState.Context)
}

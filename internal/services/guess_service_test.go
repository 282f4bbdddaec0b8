package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lakbychance/guess-btc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupGuessTest(t *testing.T, source PriceSource, threshold time.Duration) (*gorm.DB, *GuessService, *models.User) {
	t.Helper()

	gdb := newTestDB(t)
	users := NewUserService(gdb)
	user, err := users.CreateUser(context.Background(), "satoshi")
	require.NoError(t, err)

	return gdb, NewGuessService(gdb, source, threshold), user
}

func TestCreateGuess(t *testing.T) {
	_, svc, user := setupGuessTest(t, &stubPriceSource{}, time.Minute)

	guess, err := svc.CreateGuess(context.Background(), user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)
	assert.Equal(t, user.ID, guess.UserID)
	assert.Equal(t, models.PredictionUp, guess.Prediction)
	assert.Equal(t, float64(45000), guess.RecordedPrice)
	assert.Nil(t, guess.ResolvedAt)
	assert.Nil(t, guess.IsCorrect)
}

func TestCreateGuessUnknownUser(t *testing.T) {
	_, svc, _ := setupGuessTest(t, &stubPriceSource{}, time.Minute)

	_, err := svc.CreateGuess(context.Background(), uuid.New(), models.PredictionUp, 45000)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateGuessRejectsSecondUnresolved(t *testing.T) {
	_, svc, user := setupGuessTest(t, &stubPriceSource{}, time.Minute)
	ctx := context.Background()

	_, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)

	_, err = svc.CreateGuess(ctx, user.ID, models.PredictionDown, 45100)
	assert.ErrorIs(t, err, ErrGuessPending)
}

func TestCheckGuessResultNoGuess(t *testing.T) {
	_, svc, user := setupGuessTest(t, &stubPriceSource{}, time.Minute)

	_, err := svc.CheckGuessResult(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrNoGuess)
}

func TestCheckGuessResultBeforeThreshold(t *testing.T) {
	source := &stubPriceSource{price: 50000}
	gdb, svc, user := setupGuessTest(t, source, time.Hour)
	ctx := context.Background()

	guess, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)

	result, err := svc.CheckGuessResult(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, result.Resolved)
	assert.Nil(t, result.IsCorrect)
	assert.Nil(t, result.UpdatedScore)

	// No oracle call and no store mutation before the threshold
	assert.Equal(t, 0, source.calls)

	var stored models.Guess
	require.NoError(t, gdb.First(&stored, "id = ?", guess.ID).Error)
	assert.Nil(t, stored.ResolvedAt)
}

func TestCheckGuessResultCorrectUpGuess(t *testing.T) {
	source := &stubPriceSource{price: 50000}
	gdb, svc, user := setupGuessTest(t, source, 0)
	ctx := context.Background()

	guess, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)

	result, err := svc.CheckGuessResult(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, result.Resolved)
	require.NotNil(t, result.IsCorrect)
	assert.True(t, *result.IsCorrect)
	require.NotNil(t, result.UpdatedScore)
	assert.Equal(t, int64(1), *result.UpdatedScore)

	var stored models.Guess
	require.NoError(t, gdb.First(&stored, "id = ?", guess.ID).Error)
	assert.NotNil(t, stored.ResolvedAt)
	require.NotNil(t, stored.IsCorrect)
	assert.True(t, *stored.IsCorrect)
}

func TestCheckGuessResultIncorrectUpGuessClampsAtZero(t *testing.T) {
	source := &stubPriceSource{price: 40000}
	gdb, svc, user := setupGuessTest(t, source, 0)
	ctx := context.Background()

	_, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)

	result, err := svc.CheckGuessResult(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, result.Resolved)
	require.NotNil(t, result.IsCorrect)
	assert.False(t, *result.IsCorrect)
	require.NotNil(t, result.UpdatedScore)
	assert.Equal(t, int64(0), *result.UpdatedScore)

	var stored models.User
	require.NoError(t, gdb.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(0), stored.Score)
}

func TestCheckGuessResultDownGuess(t *testing.T) {
	source := &stubPriceSource{price: 40000}
	_, svc, user := setupGuessTest(t, source, 0)
	ctx := context.Background()

	_, err := svc.CreateGuess(ctx, user.ID, models.PredictionDown, 45000)
	require.NoError(t, err)

	result, err := svc.CheckGuessResult(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, result.Resolved)
	require.NotNil(t, result.IsCorrect)
	assert.True(t, *result.IsCorrect)
	require.NotNil(t, result.UpdatedScore)
	assert.Equal(t, int64(1), *result.UpdatedScore)
}

func TestCheckGuessResultFlatPriceDefers(t *testing.T) {
	source := &stubPriceSource{price: 45000}
	gdb, svc, user := setupGuessTest(t, source, 0)
	ctx := context.Background()

	guess, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)

	result, err := svc.CheckGuessResult(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, result.Resolved)
	assert.Equal(t, 1, source.calls)

	var stored models.Guess
	require.NoError(t, gdb.First(&stored, "id = ?", guess.ID).Error)
	assert.Nil(t, stored.ResolvedAt)
}

func TestCheckGuessResultIdempotent(t *testing.T) {
	source := &stubPriceSource{price: 50000}
	gdb, svc, user := setupGuessTest(t, source, 0)
	ctx := context.Background()

	_, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)

	first, err := svc.CheckGuessResult(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, first.Resolved)
	require.NotNil(t, first.UpdatedScore)
	assert.Equal(t, int64(1), *first.UpdatedScore)

	// Second poll short-circuits with no second score mutation
	second, err := svc.CheckGuessResult(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, second.Resolved)
	assert.Nil(t, second.IsCorrect)
	assert.Nil(t, second.UpdatedScore)

	var stored models.User
	require.NoError(t, gdb.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(1), stored.Score)
}

// Two polls can pass the threshold check with the same open guess before
// either settles it. The conditional UPDATE lets exactly one of them write;
// the loser must report resolved without a second score mutation.
func TestResolveGuessConcurrentLoser(t *testing.T) {
	source := &stubPriceSource{price: 50000}
	gdb, svc, user := setupGuessTest(t, source, 0)
	ctx := context.Background()

	_, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)

	guess, err := svc.LatestGuess(ctx, user.ID)
	require.NoError(t, err)

	winner, err := svc.resolveGuess(ctx, guess, true)
	require.NoError(t, err)
	require.True(t, winner.Resolved)
	require.NotNil(t, winner.UpdatedScore)
	assert.Equal(t, int64(1), *winner.UpdatedScore)

	// Second settle of the same guess affects zero rows
	loser, err := svc.resolveGuess(ctx, guess, true)
	require.NoError(t, err)
	assert.True(t, loser.Resolved)
	assert.Nil(t, loser.IsCorrect)
	assert.Nil(t, loser.UpdatedScore)

	var stored models.User
	require.NoError(t, gdb.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(1), stored.Score)
}

func TestScoreNeverGoesNegative(t *testing.T) {
	source := &stubPriceSource{price: 40000}
	gdb, svc, user := setupGuessTest(t, source, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
		require.NoError(t, err)

		result, err := svc.CheckGuessResult(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, result.Resolved)
		require.NotNil(t, result.UpdatedScore)
		assert.Equal(t, int64(0), *result.UpdatedScore)
	}

	var stored models.User
	require.NoError(t, gdb.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(0), stored.Score)
}

func TestCheckGuessResultOracleFailure(t *testing.T) {
	source := &stubPriceSource{err: assert.AnError}
	gdb, svc, user := setupGuessTest(t, source, 0)
	ctx := context.Background()

	guess, err := svc.CreateGuess(ctx, user.ID, models.PredictionUp, 45000)
	require.NoError(t, err)

	_, err = svc.CheckGuessResult(ctx, user.ID)
	assert.Error(t, err)

	// The guess stays open for the next poll
	var stored models.Guess
	require.NoError(t, gdb.First(&stored, "id = ?", guess.ID).Error)
	assert.Nil(t, stored.ResolvedAt)
}

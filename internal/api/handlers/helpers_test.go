package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/lakbychance/guess-btc/internal/db"
	"github.com/lakbychance/guess-btc/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	return gdb
}

type fixedPriceSource struct {
	price float64
}

func (s fixedPriceSource) CurrentPrice(ctx context.Context) (float64, error) {
	return s.price, nil
}

// newGameApp wires the user and guess endpoints against an in-memory store
// with a fixed oracle price and a zero resolution threshold.
func newGameApp(t *testing.T, price float64) (*fiber.App, *gorm.DB) {
	t.Helper()

	gdb := newTestDB(t)
	userHandler := NewUserHandler(services.NewUserService(gdb))
	guessHandler := NewGuessHandler(services.NewGuessService(gdb, fixedPriceSource{price: price}, 0))

	app := fiber.New()
	app.Post("/api/create-user", userHandler.CreateUser)
	app.Get("/api/user/:username", userHandler.GetUser)
	app.Post("/api/make-guess", guessHandler.MakeGuess)
	app.Get("/api/check-guess-result", guessHandler.CheckGuessResult)

	return app, gdb
}

func jsonRequest(method, target, body string) *http.Request {
	req, _ := http.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload
}

func createUser(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/create-user", `{"username":"`+username+`"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	userID, ok := payload["userId"].(string)
	require.True(t, ok, "response should contain userId")
	return userID
}

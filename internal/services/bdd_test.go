//go:build bdd

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/models"

	"github.com/cucumber/godog"
)

// bindingScenario holds per-scenario state.
type bindingScenario struct {
	t   *testing.T
	env *testEnv

	users map[string]*models.User
	apps  map[string]*models.App

	code     string
	keptCode string
	identity *models.User
	lastErr  error
}

func (b *bindingScenario) reset() {
	*b = bindingScenario{
		t:     b.t,
		env:   newTestEnv(b.t),
		users: make(map[string]*models.User),
		apps:  make(map[string]*models.App),
	}
}

func (b *bindingScenario) user(name string) *models.User {
	if u, ok := b.users[name]; ok {
		return u
	}
	u := makeTestUser(b.t, b.env.store)
	b.users[name] = u
	return u
}

// ── Given steps ─────────────────────────────────────────────────────

func (b *bindingScenario) anAppOwnedBy(appName, owner string) error {
	app, err := b.env.apps.Create(context.Background(), CreateAppRequest{
		Name:        appName,
		RedirectURI: "https://example.com/callback",
		OwnerID:     b.user(owner).ID,
	})
	if err != nil {
		return err
	}
	b.apps[appName] = app
	return nil
}

func (b *bindingScenario) aUser(name string) error {
	b.user(name)
	return nil
}

// ── When steps ──────────────────────────────────────────────────────

func (b *bindingScenario) bindsTo(userName, appName string) error {
	res, err := b.env.binding.DoBind(context.Background(), b.user(userName).ID, b.apps[appName].ID)
	if err != nil {
		return err
	}
	b.code = res.Code
	return nil
}

func (b *bindingScenario) unbindsFrom(userName, appName string) error {
	return b.env.binding.Unbind(context.Background(), b.user(userName).ID, b.apps[appName].ID)
}

func (b *bindingScenario) theFirstCodeIsKept() error {
	b.keptCode = b.code
	return nil
}

func (b *bindingScenario) secondsPass(n int) error {
	b.env.clock.Advance(time.Duration(n) * time.Second)
	return nil
}

func (b *bindingScenario) exchange(code, secret string) {
	b.identity, b.lastErr = b.env.binding.ExchangeAuthCode(context.Background(), code, secret)
}

func (b *bindingScenario) theAppExchangesTheCodeWithItsSecret() error {
	b.exchange(b.code, b.apps["Notes"].Secret)
	return nil
}

func (b *bindingScenario) theAppExchangesTheKeptCodeWithItsSecret() error {
	b.exchange(b.keptCode, b.apps["Notes"].Secret)
	return nil
}

func (b *bindingScenario) theAppExchangesTheCodeWithSecret(secret string) error {
	b.exchange(b.code, secret)
	return nil
}

// ── Then steps ──────────────────────────────────────────────────────

func (b *bindingScenario) anAuthCodeIsIssued() error {
	if b.code == "" {
		return errors.New("no auth code was issued")
	}
	return nil
}

func (b *bindingScenario) theIdentityReturnedIs(name string) error {
	if b.lastErr != nil {
		return fmt.Errorf("exchange failed: %w", b.lastErr)
	}
	if b.identity == nil || b.identity.ID != b.user(name).ID {
		return fmt.Errorf("expected identity %q, got %+v", name, b.identity)
	}
	return nil
}

func (b *bindingScenario) isBoundTo(userName, appName string) error {
	if !b.env.binding.CheckBind(context.Background(), b.user(userName).ID, b.apps[appName].ID) {
		return fmt.Errorf("%s is not bound to %s", userName, appName)
	}
	return nil
}

func (b *bindingScenario) hasRelationsWith(userName string, n int, appName string) error {
	count, err := b.env.store.CountUserApps(context.Background(), b.apps[appName].ID)
	if err != nil {
		return err
	}
	if count != int64(n) {
		return fmt.Errorf("expected %d relations, got %d", n, count)
	}
	return nil
}

var errorKinds = map[string]error{
	"unauthorized":  core.ErrUnauthorized,
	"invalid token": core.ErrInvalidToken,
	"rate limited":  core.ErrRateLimited,
}

func (b *bindingScenario) theExchangeFailsAs(kind string) error {
	want, ok := errorKinds[kind]
	if !ok {
		return fmt.Errorf("unknown error kind %q", kind)
	}
	if b.lastErr == nil {
		return errors.New("expected the exchange to fail")
	}
	if got := core.KindOf(b.lastErr); !errors.Is(got, want) {
		return fmt.Errorf("expected %s, got %v (%v)", kind, got, b.lastErr)
	}
	return nil
}

func TestBindingFeatures(t *testing.T) {
	b := &bindingScenario{t: t}

	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				b.reset()
				return ctx, nil
			})

			// Given
			sc.Step(`^an app "([^"]*)" owned by "([^"]*)"$`, b.anAppOwnedBy)
			sc.Step(`^a user "([^"]*)"$`, b.aUser)

			// When
			sc.Step(`^"([^"]*)" binds to "([^"]*)"$`, b.bindsTo)
			sc.Step(`^"([^"]*)" unbinds from "([^"]*)"$`, b.unbindsFrom)
			sc.Step(`^the first code is kept$`, b.theFirstCodeIsKept)
			sc.Step(`^(\d+) seconds pass$`, b.secondsPass)
			sc.Step(`^the app exchanges the code with its secret$`, b.theAppExchangesTheCodeWithItsSecret)
			sc.Step(`^the app exchanges the kept code with its secret$`, b.theAppExchangesTheKeptCodeWithItsSecret)
			sc.Step(`^the app exchanges the code with secret "([^"]*)"$`, b.theAppExchangesTheCodeWithSecret)

			// Then
			sc.Step(`^an auth code is issued$`, b.anAuthCodeIsIssued)
			sc.Step(`^the identity returned is "([^"]*)"$`, b.theIdentityReturnedIs)
			sc.Step(`^"([^"]*)" is bound to "([^"]*)"$`, b.isBoundTo)
			sc.Step(`^"([^"]*)" has (\d+) relation with "([^"]*)"$`, b.hasRelationsWith)
			sc.Step(`^the exchange fails as "([^"]*)"$`, b.theExchangeFailsAs)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("BDD tests failed")
	}
}

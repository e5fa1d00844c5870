package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^I am logged in as "([^"]*)" with role "([^"]*)"$`, tc.loggedInAs)

	ctx.Step(`^a holder "([^"]*)" named "([^"]*)" is registered$`, tc.registerHolder)
	ctx.Step(`^the issuer issues a "([^"]*)" claim "([^"]*)" for holder "([^"]*)"$`, tc.issueClaim)
	ctx.Step(`^I save the claim id as "([^"]*)"$`, tc.saveClaimID)
	ctx.Step(`^the issuer revokes claim "([^"]*)" with reason "([^"]*)"$`, tc.revokeClaim)
	ctx.Step(`^the issuer supersedes claim "([^"]*)" with value "([^"]*)"$`, tc.supersedeClaim)
	ctx.Step(`^the holder "([^"]*)" shares their credentials$`, tc.shareCredentials)
	ctx.Step(`^anyone verifies the share token$`, tc.verifyShareToken)
	ctx.Step(`^anyone verifies a tampered token$`, tc.verifyTamperedToken)
	ctx.Step(`^anyone looks up holder "([^"]*)"$`, tc.lookupHolder)

	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the verification outcome should be "([^"]*)"$`, tc.verificationOutcomeShouldBe)
	ctx.Step(`^the version chain for "([^"]*)" should have (\d+) entries$`, tc.versionChainShouldHave)
}

func (tc *TestContext) loggedInAs(ctx context.Context, email, role string) error {
	if err := tc.POST("/auth/login/otp", map[string]string{"email": email}, ""); err != nil {
		return err
	}
	code, err := tc.GetResponseField("code")
	if err != nil {
		return err
	}
	if err := tc.POST("/auth/login", map[string]string{
		"email": email, "code": code.(string), "role": role,
	}, ""); err != nil {
		return err
	}
	token, err := tc.GetResponseField("token")
	if err != nil {
		return err
	}
	tc.SessionTokens[role] = token.(string)
	return nil
}

func (tc *TestContext) registerHolder(ctx context.Context, id, name string) error {
	return tc.POST("/api/holders", map[string]string{
		"id": id, "name": name,
	}, tc.SessionTokens["issuer"])
}

func (tc *TestContext) issueClaim(ctx context.Context, kind, value, holderID string) error {
	return tc.POST("/api/claims", map[string]string{
		"holderId": holderID, "kind": kind, "value": value,
	}, tc.SessionTokens["issuer"])
}

func (tc *TestContext) saveClaimID(ctx context.Context, alias string) error {
	id, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	tc.ClaimIDs[alias] = id.(string)
	return nil
}

func (tc *TestContext) revokeClaim(ctx context.Context, alias, reason string) error {
	return tc.POST("/api/claims/revoke", map[string]string{
		"id": tc.ClaimIDs[alias], "reason": reason,
	}, tc.SessionTokens["issuer"])
}

func (tc *TestContext) supersedeClaim(ctx context.Context, alias, value string) error {
	return tc.POST("/api/claims/supersede", map[string]string{
		"previousVersionId": tc.ClaimIDs[alias], "value": value,
	}, tc.SessionTokens["issuer"])
}

func (tc *TestContext) shareCredentials(ctx context.Context, holderID string) error {
	if err := tc.POST("/api/share", map[string]any{
		"holderId": holderID, "ttlMinutes": 15,
	}, tc.SessionTokens["holder"]); err != nil {
		return err
	}
	encoded, err := tc.GetResponseField("encoded")
	if err != nil {
		return err
	}
	tc.ShareToken = encoded.(string)
	return nil
}

func (tc *TestContext) verifyShareToken(ctx context.Context) error {
	return tc.POST("/api/verify", map[string]string{"token": tc.ShareToken}, "")
}

func (tc *TestContext) verifyTamperedToken(ctx context.Context) error {
	return tc.POST("/api/verify", map[string]string{"token": tc.ShareToken + "x"}, "")
}

func (tc *TestContext) lookupHolder(ctx context.Context, holderID string) error {
	return tc.GET("/api/verify/"+holderID, "")
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, status int) error {
	if tc.LastResponse.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, substr string) error {
	if !strings.Contains(string(tc.LastResponseBody), substr) {
		return fmt.Errorf("response does not contain %q: %s", substr, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, want string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	got := fmt.Sprintf("%v", value)
	if got != want {
		return fmt.Errorf("expected field %q to equal %q, got %q", field, want, got)
	}
	return nil
}

func (tc *TestContext) verificationOutcomeShouldBe(ctx context.Context, outcome string) error {
	return tc.responseFieldShouldEqual(ctx, "outcome", outcome)
}

func (tc *TestContext) versionChainShouldHave(ctx context.Context, alias string, count int) error {
	if err := tc.GET("/api/claims/chain/"+tc.ClaimIDs[alias], tc.SessionTokens["issuer"]); err != nil {
		return err
	}
	var out struct {
		Chain []json.RawMessage `json:"chain"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &out); err != nil {
		return fmt.Errorf("failed to unmarshal chain: %w", err)
	}
	if len(out.Chain) != count {
		return fmt.Errorf("expected %d chain entries, got %d", count, len(out.Chain))
	}
	return nil
}

package chat

import (
	"net/url"
	"strings"
)

// Route names the guard redirects to.
const (
	RouteLogin       = "login"
	RouteHome        = "home"
	RouteVerifyEmail = "verify-email"
)

// AuthSectionPrefix marks the login/register/verify section of the route
// tree.
const AuthSectionPrefix = "/auth"

// Route is a navigation intent: the target route plus its declared
// requirements. One instance per navigation attempt.
type Route struct {
	Name string
	Path string
	// RequiresAuth marks routes only signed-in users may visit.
	RequiresAuth bool
	// RequiresEmail marks routes that expect an email query parameter
	// (the verify-email page).
	RequiresEmail bool
	// Query carries the navigation's query parameters.
	Query url.Values
}

func (r Route) inAuthSection() bool {
	return strings.HasPrefix(r.Path, AuthSectionPrefix)
}

// Decision is the guard's verdict for one navigation attempt.
type Decision struct {
	Allow bool
	// Redirect names the route to send the user to instead; empty when
	// Allow is true.
	Redirect string
	// Query carries parameters for the redirect target.
	Query url.Values
}

// Proceed allows the navigation.
func Proceed() Decision {
	return Decision{Allow: true}
}

// RedirectTo blocks the navigation and names a replacement target.
func RedirectTo(name string, query url.Values) Decision {
	return Decision{Redirect: name, Query: query}
}

// GuardRule inspects one navigation attempt. A nil result means the rule
// has no opinion and evaluation moves to the next rule.
type GuardRule func(route Route, session *Session) *Decision

// EvaluateRoute runs the default rule chain against a navigation attempt.
// It is a pure function of the target route and the session snapshot; it
// must be called with already-resolved store state (the guard never waits
// for Init).
func EvaluateRoute(route Route, session *Session) Decision {
	return evaluate(defaultGuardRules, route, session)
}

func evaluate(rules []GuardRule, route Route, session *Session) Decision {
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		if d := rule(route, session); d != nil {
			return *d
		}
	}
	return Proceed()
}

// defaultGuardRules is the ordered rule list. Order matters: the first
// rule with an opinion wins.
var defaultGuardRules = []GuardRule{
	requireAuthRule,
	authSectionRule,
	verifyEmailParamRule,
}

// requireAuthRule: a protected route with no session goes to login.
func requireAuthRule(route Route, session *Session) *Decision {
	if route.RequiresAuth && session == nil {
		d := RedirectTo(RouteLogin, nil)
		return &d
	}
	return nil
}

// authSectionRule: a signed-in user has no business in the auth section.
// Unverified users are pushed to the verify-email page carrying their
// email; verified users go home.
func authSectionRule(route Route, session *Session) *Decision {
	if session == nil || !route.inAuthSection() {
		return nil
	}

	if !session.EmailVerified() && route.Name != RouteVerifyEmail {
		query := url.Values{}
		if email := session.Email(); email != "" {
			query.Set("email", email)
		}
		d := RedirectTo(RouteVerifyEmail, query)
		return &d
	}

	if session.EmailVerified() {
		d := RedirectTo(RouteHome, nil)
		return &d
	}

	return nil
}

// verifyEmailParamRule: the verify-email page needs an email, from the
// query or from the session; with neither, back to login.
func verifyEmailParamRule(route Route, session *Session) *Decision {
	if route.Name != RouteVerifyEmail {
		return nil
	}

	if route.Query.Get("email") == "" && session.Email() == "" {
		d := RedirectTo(RouteLogin, nil)
		return &d
	}

	return nil
}

// RouteGuard binds the rule chain to a session store so navigation layers
// can consult it before every transition.
type RouteGuard struct {
	store *SessionStore
	rules []GuardRule
}

// NewRouteGuard returns a guard reading the given store with the default
// rule chain.
func NewRouteGuard(store *SessionStore) *RouteGuard {
	return &RouteGuard{
		store: store,
		rules: defaultGuardRules,
	}
}

// WithRules replaces the rule chain. Rules are evaluated in order.
func (g *RouteGuard) WithRules(rules ...GuardRule) *RouteGuard {
	g.rules = rules
	return g
}

// Check evaluates one navigation attempt against current store state,
// synchronously.
func (g *RouteGuard) Check(route Route) Decision {
	return evaluate(g.rules, route, g.store.Session())
}

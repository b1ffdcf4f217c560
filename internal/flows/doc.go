// Package flows implements the authentication state machine behind the
// Engine: signup, login, the two-step recovery and logout.
//
// Each Run* function receives everything it touches through a [Deps]
// value built by the root package, so flows never import goSession and
// are driven entirely by injected stores, hashers and sentinels.
package flows

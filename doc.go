// Package chat provides the client core for a web chat application:
// the authentication session lifecycle, route-access control, and the
// vendor error classifier, plus the profile record model the rest of the
// app hangs off.
//
// Session lifecycle:
//   - SessionStore mirrors the vendor auth provider's identity stream into
//     local state and merges the parallel profile record on every sign-in.
//     The lifecycle is Uninitialized → Loading → {Authenticated, Anonymous};
//     Loading is only entered at boot, and later actions keep the prior
//     state until they resolve.
//   - The stream subscription is an explicit observer with a cancellable
//     handle (AuthClient.OnStateChange), registered once in Init.
//
// Route guarding:
//   - EvaluateRoute is a pure, framework-free decision function over the
//     target route and a session snapshot, expressed as an ordered rule
//     list. RouteGuard binds it to a store for navigation layers.
//
// Error handling:
//   - Vendor failures carry wire codes (auth/wrong-password and friends);
//     Classify maps known codes to fixed user-facing copy and passes
//     unknown codes through untouched. Session actions record every
//     failure into the store's error field before returning it.
//
// Friend management, messaging, notification dispatch, and the concrete
// document-store backing live in the roster, messaging, notify, and
// repository subpackages; provider/local ships a self-contained AuthClient
// for development and tests.
package chat

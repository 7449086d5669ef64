// Package wodstrat holds the WodStrat session core and the identity API
// that issues its tokens.
//
// Session core:
//   - SessionDecoder turns a bearer token into a SessionUser. Failures never
//     panic; they wrap ErrTokenRejected.
//   - StateManager owns AuthState and the TokenStore. Initialize, Login and
//     Logout each start a new generation, and a late Initialize result from
//     an older generation is dropped.
//   - AthleteLink mirrors the session user's athlete id and pushes ids set
//     after profile creation back upstream.
//   - RouteGate decides once per auth window whether the client must be sent
//     to profile setup or back to the profile home. GateBinder feeds it from
//     the manager and the link and performs redirects through a Navigator.
//
// Identity API:
//   - Auther registers users, checks passwords and issues HS256 tokens with
//     the {sub, email, athleteId?, exp} claim set.
//   - CreateAthleteHandler creates the single athlete profile of a user.
//   - APIController serves both over chi, with bearer auth from jwtware.
//
// Activity sinks:
//   - ActivitySink receives login, session, athlete and gate events. Sinks run
//     best-effort (errors are logged) so you can forward to metrics or a
//     message bus without blocking authentication.
package wodstrat

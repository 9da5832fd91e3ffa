package httpx

import (
	"net/http"

	"github.com/trusteelab/vpass/pkg/cryptox"
	"github.com/trusteelab/vpass/pkg/slogx"
)

// ServiceTokenHeader carries the shared S2S credential presented by
// relying-party backends calling the verify endpoint.
const ServiceTokenHeader = "X-Service-Token"

// ErrInvalidServiceToken is returned when the S2S credential is missing or
// does not match.
var ErrInvalidServiceToken = NewError(
	http.StatusForbidden,
	"invalid_service_token",
	"a valid service token is required for server-to-server access",
)

// RequireServiceToken gates a handler behind the static S2S credential.
// The credential is held as an Argon2id hash; the presented header value is
// verified against it, so the plaintext never lives in the router.
func RequireServiceToken(credentialHash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			presented := r.Header.Get(ServiceTokenHeader)
			if presented == "" {
				log.Warn("s2s request without service token")
				ErrInvalidServiceToken.Write(w)
				return
			}

			if err := cryptox.VerifyCredential(presented, credentialHash); err != nil {
				log.Warn("s2s request with rejected service token")
				ErrInvalidServiceToken.Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

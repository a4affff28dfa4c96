package upstream

import "time"

// Config describes the upstream gateway connection. NPSSO is the session
// credential issued by the network's account site; it is attached to requests
// as-is. Refresh and rotation are the credential owner's problem, not ours.
type Config struct {
	// Required. The service refuses to start without it.
	NPSSO string `env:"NPSSO,notEmpty"`

	BaseURL        string        `env:"PSN_BASE_URL" envDefault:"https://m.np.playstation.com/api"`
	Timeout        time.Duration `env:"PSN_TIMEOUT" envDefault:"10s"`
	AcceptLanguage string        `env:"PSN_ACCEPT_LANGUAGE" envDefault:"en-US"`
}

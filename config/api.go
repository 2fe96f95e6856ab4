package config

// APIConfig configures the serve command.
type APIConfig struct {
	Listen string `json:"listen"`
	// Token, when set, is required as a Bearer token on every /api request.
	Token string `json:"token"`
}

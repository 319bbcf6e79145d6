package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --provider
// on "scribe serve" and --target on "scribe summarize").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddStringSliceFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen            = "listen"
	FlagAllowedOrigins    = "allowed-origins"
	FlagJWKSURL           = "jwks-url"
	FlagIssuer            = "issuer"
	FlagAudience          = "audience"
	FlagAuthorizedParties = "authorized-parties"
	FlagLeeway            = "leeway"
	FlagProvider          = "provider"
	FlagModel             = "model"
	FlagUpstream          = "upstream"
	FlagTarget            = "target"
)

// ServeFlags are the flags registered by "scribe serve".
var ServeFlags = FlagSet{
	FlagListen:            {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the HTTP server to listen on"},
	FlagAllowedOrigins:    {Name: "allowed-origins", ViperKey: "server.allowed_origins", Description: "CORS origins allowed to call the API"},
	FlagJWKSURL:           {Name: "jwks-url", ViperKey: "auth.jwks_url", Description: "URL of the JSON Web Key Set used to verify bearer tokens"},
	FlagIssuer:            {Name: "issuer", ViperKey: "auth.issuer", Description: "Required token issuer (iss); empty disables the check"},
	FlagAudience:          {Name: "audience", ViperKey: "auth.audience", Description: "Required token audience (aud); empty disables the check"},
	FlagAuthorizedParties: {Name: "authorized-parties", ViperKey: "auth.authorized_parties", Description: "Accepted authorized parties (azp)"},
	FlagLeeway:            {Name: "leeway", ViperKey: "auth.leeway", Description: "Clock skew tolerated when checking token times"},
	FlagProvider:          {Name: "provider", Shorthand: "p", ViperKey: "model.provider", Description: "Model provider (gemini, openai, ollama)"},
	FlagModel:             {Name: "model", Shorthand: "m", ViperKey: "model.name", Description: "Model name; empty uses the provider default"},
	FlagUpstream:          {Name: "upstream", Shorthand: "u", ViperKey: "model.upstream", Description: "Base URL of the model API; empty uses the provider default"},
}

// ClientFlags are the flags registered by commands that talk to a running server.
var ClientFlags = FlagSet{
	FlagTarget: {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "Scribe server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a comma separated list flag on cmd from the given FlagSet.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, key string, target *[]string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultStringSlice(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultStringSlice returns the default list value for a viper key from NewDefaultConfig.
func defaultStringSlice(viperKey string) []string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetStringSlice(viperKey)
}

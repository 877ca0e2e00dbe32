// Package config loads jsh settings with Viper.
//
// Values come from built-in defaults, an optional config file (jsh.yaml,
// jsh.toml or jsh.json in the working directory, or an explicit path) and
// JSH_* environment variables, in increasing order of precedence. The
// historical JSBOOTPATH variable still sets the boot directory.
package config

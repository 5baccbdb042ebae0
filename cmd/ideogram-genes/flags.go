package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlag binds f to key; only a flag the user actually set overrides the
// config file and environment.
func bindFlag(f *pflag.Flag, key string) {
	if f == nil {
		return
	}
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

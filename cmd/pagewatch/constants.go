package main

import (
	"time"

	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

// DefaultConfigName is shown in help text.
const DefaultConfigName = config.DefaultConfigFile

// DefaultNotifyTestTimeout is the notify-test wait; shorter than a real run's.
const DefaultNotifyTestTimeout = 60 * time.Second

// Valid tones for the run command.
var validTones = []string{"neutral", "challenger", "friendly"}

package models

import "time"

// timeNow is swapped out by tests that need deterministic timestamps.
var timeNow = time.Now

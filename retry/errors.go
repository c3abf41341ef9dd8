package retry

import "github.com/sbvh/botcore/errors"

// errRetryOnResultExhausted is returned when every attempt succeeded (no
// error) but RetryOnResult kept demanding another try until attempts ran out.
var errRetryOnResultExhausted = errors.New("retry: attempts exhausted without an accepted result")

// Package retry runs an operation until it succeeds, waiting with
// exponential backoff and jitter between attempts.
//
// After attempt i (counting from 1) fails, the controller waits
// 2^i * BaseDelay plus a uniformly random jitter in [0, MaxJitter) and
// derives the state for the next attempt from the previous one. With the
// defaults that is 2s, then 4s, then 8s, each plus up to one second.
//
// The package knows nothing about what the operation does. Callers that
// rotate an egress identity pass it as the state and a rotation function
// as the step, so every call carries its own identity.
package retry

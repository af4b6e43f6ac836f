package api_helpers

// The CLI sets this for "--timing". Only the API entry points that create a
// root timer read it. Everything below them checks whether the timer it was
// given is nil instead.
var UseTimer bool

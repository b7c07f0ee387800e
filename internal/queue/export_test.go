package queue

// EncodeDelayed exposes the delayed member encoding to external tests.
var EncodeDelayed = encodeDelayed

package leandoc

// VERSION is the release version stamped into generated file headers.
const VERSION = "v0.1.0"

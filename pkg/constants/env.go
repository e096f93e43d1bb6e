package constants

import "os"

// NoModuleCache disables the compiled module cache of the wasm engine.
var NoModuleCache = os.Getenv("VENUS_FVM_NO_MODULE_CACHE") == "1"

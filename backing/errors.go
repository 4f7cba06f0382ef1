package backing

import "fmt"

// ErrPageNotFound is returned by Strategy.ReadPage when the page ID is not
// known to the strategy (never allocated, or already freed).
var ErrPageNotFound = fmt.Errorf("backing: page not found")

// ErrContextExists is returned by Store.Create when a file for that context
// name already exists on disk.
var ErrContextExists = fmt.Errorf("backing: context already exists")

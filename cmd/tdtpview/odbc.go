//go:build odbc

package main

import _ "github.com/ruslano69/tdtp-viewer/pkg/adapters/odbc"

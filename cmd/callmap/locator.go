package main

import (
	"fmt"
	"strconv"
	"strings"

	"callmap/internal/lsp"
)

// parseLocator parses a FILE:LINE:COL argument. Line and column are
// one-based on the command line and converted to the zero-based
// positions used everywhere else. The column may be omitted. Splitting
// runs from the right so Windows drive letters survive.
func parseLocator(arg string) (string, lsp.Position, error) {
	var pos lsp.Position

	last := strings.LastIndex(arg, ":")
	if last <= 0 {
		return "", pos, fmt.Errorf("invalid locator %q: expected FILE:LINE[:COL]", arg)
	}

	path := arg[:last]
	lineStr := arg[last+1:]
	colStr := ""

	if prev := strings.LastIndex(path, ":"); prev > 1 {
		// Two trailing numbers: FILE:LINE:COL.
		if _, err := strconv.Atoi(lineStr); err == nil {
			if _, err := strconv.Atoi(path[prev+1:]); err == nil {
				colStr = lineStr
				lineStr = path[prev+1:]
				path = path[:prev]
			}
		}
	}

	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return "", pos, fmt.Errorf("invalid locator %q: line must be a positive number", arg)
	}
	pos.Line = line - 1

	if colStr != "" {
		col, err := strconv.Atoi(colStr)
		if err != nil || col < 1 {
			return "", pos, fmt.Errorf("invalid locator %q: column must be a positive number", arg)
		}
		pos.Character = col - 1
	}

	if path == "" {
		return "", pos, fmt.Errorf("invalid locator %q: empty file path", arg)
	}
	return path, pos, nil
}

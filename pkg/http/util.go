package http

import (
	"github.com/labstack/echo/v4"

	xutil "nichescope/pkg/util"
)

// QueryInt reads an integer query parameter or returns def if empty/invalid.
func QueryInt(c echo.Context, name string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(name), def)
}

// QueryList reads a comma-separated query parameter.
func QueryList(c echo.Context, name string) []string {
	return xutil.SplitCSV(c.QueryParam(name))
}

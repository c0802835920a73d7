package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
)

// bindPage reads the page & limit query params, applying the listing defaults.
func bindPage(ctx echo.Context) (core.Page, error) {
	var page core.Page
	err := echo.QueryParamsBinder(ctx).
		Int("page", &page.Page).
		Int("limit", &page.Limit).
		BindError()
	if err != nil {
		return core.Page{}, errors.Wrap(err, "binding page")
	}
	page.Clean()
	return page, nil
}

// queryBool reports whether the query param name is set to a true value ("true", "1"...).
func queryBool(ctx echo.Context, name string) (bool, error) {
	var b bool
	if err := echo.QueryParamsBinder(ctx).Bool(name, &b).BindError(); err != nil {
		return false, errors.Wrapf(err, "binding %s", name)
	}
	return b, nil
}

// bindQuery binds the query params into dest using its `query` tags.
func bindQuery(ctx echo.Context, dest interface{}) error {
	return errors.Wrap((&echo.DefaultBinder{}).BindQueryParams(ctx, dest), "binding query params")
}

package application

import "github.com/zettagrid/geocontrol/app"

// App holds all use cases of the geo Context.
type App struct {
	ResolveVisitorCountry app.Query[ResolveVisitorCountryQuery, ResolveVisitorCountryResponse]
	FilterElement         app.Query[FilterElementQuery, FilterElementResponse]
	ClearCache            app.Request[ClearCacheRequest, ClearCacheResponse]
	PurgeExpiredCountries app.Command[PurgeExpiredCountries]
	ShowSettings          app.Query[ShowSettingsQuery, ShowSettingsResponse]
	UpdateSettings        app.Command[UpdateSettingsCommand]
}

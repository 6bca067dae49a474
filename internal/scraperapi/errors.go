package scraperapi

import "errors"

var errNoCompetitorData = errors.New("scraperapi: no competitor sources returned data")

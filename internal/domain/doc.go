// Package domain models agricultural drought indicators and the risk
// scoring rules applied to them.
//
// # Indicators
//
// Three daily observation series feed the engine, each keyed by
// (region, date):
//
//	NDVI:          satellite vegetation index in [-1, 1]. Higher values mean
//	               healthier vegetation. Typical cropland sits between 0.2
//	               and 0.8; below 0.2 indicates severe vegetation stress.
//	Soil moisture: volumetric moisture as a percentage in [0, 100], usually
//	               measured at 10cm depth from SMAP/SMOS retrievals or
//	               ground sensors.
//	Weather:       daily min/max/avg temperature (°C), precipitation (mm),
//	               relative humidity (%), and wind speed (km/h).
//
// Observations are produced by external ingestion and are read-only here.
//
// # Component scoring
//
// Each indicator maps to a 0-100 sub-risk score (higher = more drought
// risk) over a documented trailing window:
//
//	Weather (14 days):  temperature, precipitation, and humidity terms
//	                    weighted 0.4/0.4/0.2.
//	NDVI (5 readings):  piecewise in average NDVI, monotonic non-increasing
//	                    as vegetation improves.
//	Soil (7 readings):  banded at 60/40/20 percent moisture.
//
// A scorer with no data in its window reports "no data" rather than a
// score; the aggregate renormalizes the base weights (weather 0.4,
// NDVI 0.3, soil 0.3) over whichever components are present.
//
// # Risk tiers
//
// A single six-band tier table applies wherever a score produces a tier:
//
//	>=80 extreme | >=65 very_high | >=50 high | >=35 moderate | >=20 low |
//	else very_low
//
// Tiers are always recomputed from the score on write; they are never
// stored independently. Alert severity uses a separate, narrower table
// owned by the alert package.
//
// # Feature vector
//
// [ExtractFeatures] derives the fixed 12-field vector consumed by the
// predictive model: the same-day raw indicators, 7-day Pearson trend
// slopes, days since the last >5mm rainfall (capped at 30), the annual
// seasonal phase sin(2π·doy/365.25)·0.5+0.5, and a static per-region
// aridity index. Missing historical points degrade trend fields to 0.0;
// a missing same-day observation makes extraction infeasible.
package domain

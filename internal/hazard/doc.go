// Package hazard turns a single weather observation into ranked hazard alerts.
//
// # Sample fields
//
// Only five numeric fields are read, all optional:
//
//	windSpeed       sustained wind, km/h
//	windGusts       peak gust, km/h
//	precipitation   total precipitation over the sample hour, mm
//	rain            liquid rain over the sample hour, mm
//	weatherCode     WMO weather interpretation code (0–99)
//
// A missing field never satisfies a threshold.
//
// # Rules
//
// Rules are independent; every rule that matches yields one alert.
//
//	wind:          windSpeed > 20 or windGusts > 30    severe if windGusts > 50
//	precipitation: precipitation > 10 or rain > 10     severe if precipitation > 25
//	storm:         weatherCode >= 95                   severe if weatherCode > 95
//	winter:        71 <= weatherCode <= 77             moderate, advisory
//
// Comparisons are strict except where written otherwise. The WMO code ranges
// are 71–77 for snowfall and snow grains and 95–99 for thunderstorms, with
// 96 and 99 adding hail.
//
// # Validity
//
// An alert is effective from the sample's observation time and expires after
// a per-rule window. Windows are policy and come from configuration; see
// [Windows]. Expired alerts are filtered at read time by [Active]; nothing is
// deleted.
package hazard

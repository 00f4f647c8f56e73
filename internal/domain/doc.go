// Package domain models the national 2019-nCoV statistics published by the
// Sina epidemic map feed and the province geometry they are drawn onto.
//
// # Data Source
//
// The feed lives at https://interface.sina.cn/news/wap/fymap2020_data.d.json.
// Requests carry two query parameters: "_" (a cache-busting epoch timestamp in
// milliseconds) and an empty "callback". The response body is JSONP text:
//
//	<ignored>({"data": {...}})<ignored>
//
// [UnwrapJSONP] extracts the JSON value between the outer parentheses.
//
// # Payload Conventions
//
// data.historylist holds one entry per day, newest first:
//
//	{"date": "2.3", "cn_conNum": "17238", "cn_deathNum": "361",
//	 "cn_cureNum": "475", "cn_susNum": "21558"}
//
// Dates are "M.D" with no year. The year is supplied by configuration and
// defaults to 2020. Counts arrive as JSON strings or numbers; see [Count].
// Early entries may omit cn_susNum or carry null. Those are dropped and the
// suspected series is padded with 1 at the end so all series share a length.
//
// data.list holds one entry per province using the short name, for example
// {"name": "湖北", "value": "11177"}.
//
// # Province Names
//
// The shapefile names provinces in full (湖北省, 广西壮族自治区) while the feed
// uses short names (湖北, 广西). [CanonicalProvince] maps both forms onto the
// short name through an explicit table.
//
// # Severity
//
// Confirmed counts are bucketed for the choropleth legend:
//
//	0 | 1-10 | 11-100 | 101-1000 | >1000
package domain

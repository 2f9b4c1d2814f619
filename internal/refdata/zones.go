package refdata

// countryZones maps ISO 3166-1 alpha-2 codes to their IANA zones.
var countryZones = map[string][]string{
	"AE": {"Asia/Dubai"},
	"AR": {"America/Argentina/Buenos_Aires", "America/Argentina/Cordoba"},
	"AT": {"Europe/Vienna"},
	"AU": {"Australia/Sydney", "Australia/Melbourne", "Australia/Brisbane", "Australia/Adelaide", "Australia/Perth", "Australia/Darwin", "Australia/Hobart"},
	"BD": {"Asia/Dhaka"},
	"BE": {"Europe/Brussels"},
	"BG": {"Europe/Sofia"},
	"BR": {"America/Sao_Paulo", "America/Manaus", "America/Fortaleza", "America/Recife", "America/Belem"},
	"CA": {"America/Toronto", "America/Vancouver", "America/Edmonton", "America/Winnipeg", "America/Halifax", "America/St_Johns", "America/Regina"},
	"CH": {"Europe/Zurich"},
	"CL": {"America/Santiago"},
	"CN": {"Asia/Shanghai", "Asia/Urumqi"},
	"CO": {"America/Bogota"},
	"CZ": {"Europe/Prague"},
	"DE": {"Europe/Berlin"},
	"DK": {"Europe/Copenhagen"},
	"EE": {"Europe/Tallinn"},
	"EG": {"Africa/Cairo"},
	"ES": {"Europe/Madrid", "Atlantic/Canary"},
	"FI": {"Europe/Helsinki"},
	"FR": {"Europe/Paris"},
	"GB": {"Europe/London"},
	"GH": {"Africa/Accra"},
	"GR": {"Europe/Athens"},
	"HK": {"Asia/Hong_Kong"},
	"HR": {"Europe/Zagreb"},
	"HU": {"Europe/Budapest"},
	"ID": {"Asia/Jakarta", "Asia/Makassar", "Asia/Jayapura"},
	"IE": {"Europe/Dublin"},
	"IL": {"Asia/Jerusalem"},
	"IN": {"Asia/Kolkata"},
	"IT": {"Europe/Rome"},
	"JP": {"Asia/Tokyo"},
	"KE": {"Africa/Nairobi"},
	"KR": {"Asia/Seoul"},
	"LK": {"Asia/Colombo"},
	"LT": {"Europe/Vilnius"},
	"LV": {"Europe/Riga"},
	"MA": {"Africa/Casablanca"},
	"MX": {"America/Mexico_City", "America/Cancun", "America/Monterrey", "America/Tijuana"},
	"MY": {"Asia/Kuala_Lumpur"},
	"NG": {"Africa/Lagos"},
	"NL": {"Europe/Amsterdam"},
	"NO": {"Europe/Oslo"},
	"NP": {"Asia/Kathmandu"},
	"NZ": {"Pacific/Auckland"},
	"PE": {"America/Lima"},
	"PH": {"Asia/Manila"},
	"PK": {"Asia/Karachi"},
	"PL": {"Europe/Warsaw"},
	"PT": {"Europe/Lisbon", "Atlantic/Azores"},
	"RO": {"Europe/Bucharest"},
	"RS": {"Europe/Belgrade"},
	"SA": {"Asia/Riyadh"},
	"SE": {"Europe/Stockholm"},
	"SG": {"Asia/Singapore"},
	"SI": {"Europe/Ljubljana"},
	"SK": {"Europe/Bratislava"},
	"TH": {"Asia/Bangkok"},
	"TR": {"Europe/Istanbul"},
	"TW": {"Asia/Taipei"},
	"UA": {"Europe/Kyiv"},
	"US": {"America/New_York", "America/Chicago", "America/Denver", "America/Phoenix", "America/Los_Angeles", "America/Anchorage", "Pacific/Honolulu"},
	"UY": {"America/Montevideo"},
	"VN": {"Asia/Ho_Chi_Minh"},
	"ZA": {"Africa/Johannesburg"},
}

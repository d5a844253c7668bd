package weather

// Response is the WeatherAPI forecast.json payload, trimmed to the fields
// the assistant surfaces.
type Response struct {
	Location Location  `json:"location"`
	Current  Current   `json:"current"`
	Forecast *Forecast `json:"forecast,omitempty"`
	Alerts   *Alerts   `json:"alerts,omitempty"`
	Error    *APIError `json:"error,omitempty"`
}

// APIError is WeatherAPI's in-body error envelope.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Location struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	TzID      string  `json:"tz_id"`
	Localtime string  `json:"localtime"`
}

type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

type Current struct {
	LastUpdated string             `json:"last_updated"`
	TempC       float64            `json:"temp_c"`
	TempF       float64            `json:"temp_f"`
	IsDay       int                `json:"is_day"`
	Condition   Condition          `json:"condition"`
	WindMph     float64            `json:"wind_mph"`
	WindKph     float64            `json:"wind_kph"`
	WindDir     string             `json:"wind_dir"`
	PressureMb  float64            `json:"pressure_mb"`
	PrecipMm    float64            `json:"precip_mm"`
	Humidity    int                `json:"humidity"`
	Cloud       int                `json:"cloud"`
	FeelslikeC  float64            `json:"feelslike_c"`
	FeelslikeF  float64            `json:"feelslike_f"`
	VisKm       float64            `json:"vis_km"`
	UV          float64            `json:"uv"`
	GustKph     float64            `json:"gust_kph"`
	AirQuality  map[string]float64 `json:"air_quality,omitempty"`
}

type Forecast struct {
	Forecastday []ForecastDay `json:"forecastday"`
}

type ForecastDay struct {
	Date string `json:"date"`
	Day  Day    `json:"day"`
	Hour []Hour `json:"hour,omitempty"`
}

type Day struct {
	MaxtempC          float64   `json:"maxtemp_c"`
	MaxtempF          float64   `json:"maxtemp_f"`
	MintempC          float64   `json:"mintemp_c"`
	MintempF          float64   `json:"mintemp_f"`
	AvgtempC          float64   `json:"avgtemp_c"`
	MaxwindKph        float64   `json:"maxwind_kph"`
	TotalprecipMm     float64   `json:"totalprecip_mm"`
	TotalsnowCm       float64   `json:"totalsnow_cm"`
	Avghumidity       float64   `json:"avghumidity"`
	DailyWillItRain   int       `json:"daily_will_it_rain"`
	DailyChanceOfRain int       `json:"daily_chance_of_rain"`
	DailyWillItSnow   int       `json:"daily_will_it_snow"`
	DailyChanceOfSnow int       `json:"daily_chance_of_snow"`
	Condition         Condition `json:"condition"`
	UV                float64   `json:"uv"`
}

type Hour struct {
	Time         string    `json:"time"`
	TempC        float64   `json:"temp_c"`
	TempF        float64   `json:"temp_f"`
	IsDay        int       `json:"is_day"`
	Condition    Condition `json:"condition"`
	WindKph      float64   `json:"wind_kph"`
	PrecipMm     float64   `json:"precip_mm"`
	Humidity     int       `json:"humidity"`
	Cloud        int       `json:"cloud"`
	FeelslikeC   float64   `json:"feelslike_c"`
	WillItRain   int       `json:"will_it_rain"`
	ChanceOfRain int       `json:"chance_of_rain"`
	WillItSnow   int       `json:"will_it_snow"`
	ChanceOfSnow int       `json:"chance_of_snow"`
	VisKm        float64   `json:"vis_km"`
	GustKph      float64   `json:"gust_kph"`
	UV           float64   `json:"uv"`
}

type Alerts struct {
	Alert []Alert `json:"alert"`
}

type Alert struct {
	Headline    string `json:"headline"`
	Msgtype     string `json:"msgtype"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Areas       string `json:"areas"`
	Category    string `json:"category"`
	Event       string `json:"event"`
	Note        string `json:"note"`
	Effective   string `json:"effective"`
	Expires     string `json:"expires"`
	Desc        string `json:"desc"`
	Instruction string `json:"instruction"`
}

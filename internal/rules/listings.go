package rules

// Listings returns the coercion rule table for the listings dataset. Rule
// order is staging column order; the staging DDL, bulk load, and promote
// statement are all derived from this slice, so reordering entries reorders
// the whole pipeline.
//
// The numeric-id (host_id) and currency (price) columns are the two that
// historically reject the most rows; the bad-row sample projects them.
func Listings() Table {
	return Table{
		IDColumn:        "id",
		NumericIDColumn: "host_id",
		CurrencyColumn:  "price",
		Rules: []Rule{
			{Name: "id", Kind: Text},
			{Name: "listing_url", Kind: Text},
			{Name: "last_scraped", Kind: Text},
			{Name: "name", Kind: Text},
			{Name: "description", Kind: Text},
			{Name: "property_type", Kind: Text},
			{Name: "room_type", Kind: Text},
			{Name: "host_id", Kind: Integer, Pattern: PatternInteger},
			{Name: "host_name", Kind: Text},
			{Name: "host_since", Kind: Date},
			{Name: "host_response_time", Kind: Text},
			{Name: "host_response_rate", Kind: Text},
			{Name: "host_acceptance_rate", Kind: Text},
			{Name: "host_is_superhost", Kind: Text},
			{Name: "host_listings_count", Kind: Integer, Pattern: PatternInteger},
			{Name: "host_identity_verified", Kind: Text},
			{Name: "street", Kind: Text},
			{Name: "neighbourhood", Kind: Text},
			{Name: "neighbourhood_cleansed", Kind: Text},
			{Name: "neighbourhood_group_cleansed", Kind: Text},
			{Name: "city", Kind: Text},
			{Name: "state", Kind: Text},
			{Name: "zipcode", Kind: Text},
			{Name: "latitude", Kind: Decimal, Pattern: PatternSignedDecimal, Precision: 12, Scale: 8},
			{Name: "longitude", Kind: Decimal, Pattern: PatternSignedDecimal, Precision: 12, Scale: 8},
			{Name: "is_location_exact", Kind: Text},
			{Name: "accommodates", Kind: Integer, Pattern: PatternInteger},
			{Name: "bathrooms", Kind: Decimal, Pattern: PatternDecimal, Precision: 6, Scale: 2},
			{Name: "bedrooms", Kind: Decimal, Pattern: PatternDecimal, Precision: 6, Scale: 2},
			{Name: "beds", Kind: Decimal, Pattern: PatternDecimal, Precision: 6, Scale: 2},
			{Name: "bed_type", Kind: Text},
			{Name: "amenities", Kind: Text},
			{Name: "square_feet", Kind: Integer, Pattern: PatternInteger},
			{Name: "price", Kind: Currency, Pattern: PatternDecimal, Precision: 10, Scale: 2},
			{Name: "weekly_price", Kind: Currency, Pattern: PatternDecimal, Precision: 10, Scale: 2},
			{Name: "monthly_price", Kind: Currency, Pattern: PatternDecimal, Precision: 10, Scale: 2},
			{Name: "security_deposit", Kind: Currency, Pattern: PatternDecimal, Precision: 10, Scale: 2},
			{Name: "cleaning_fee", Kind: Currency, Pattern: PatternDecimal, Precision: 10, Scale: 2},
			{Name: "guests_included", Kind: Integer, Pattern: PatternInteger},
			{Name: "extra_people", Kind: Currency, Pattern: PatternDecimal, Precision: 10, Scale: 2},
			{Name: "minimum_nights", Kind: Integer, Pattern: PatternInteger},
			{Name: "maximum_nights", Kind: Integer, Pattern: PatternInteger},
			{Name: "instant_bookable", Kind: Text},
			{Name: "cancellation_policy", Kind: Text},
			{Name: "has_availability", Kind: Text},
			{Name: "availability_30", Kind: Integer, Pattern: PatternInteger},
			{Name: "availability_60", Kind: Integer, Pattern: PatternInteger},
			{Name: "availability_90", Kind: Integer, Pattern: PatternInteger},
			{Name: "availability_365", Kind: Integer, Pattern: PatternInteger},
			{Name: "number_of_reviews", Kind: Integer, Pattern: PatternInteger},
			{Name: "first_review", Kind: Date},
			{Name: "last_review", Kind: Date},
			{Name: "review_scores_rating", Kind: Decimal, Pattern: PatternDecimal, Precision: 5, Scale: 2},
			{Name: "review_scores_accuracy", Kind: Integer, Pattern: PatternInteger},
			{Name: "review_scores_cleanliness", Kind: Integer, Pattern: PatternInteger},
			{Name: "review_scores_checkin", Kind: Integer, Pattern: PatternInteger},
			{Name: "review_scores_communication", Kind: Integer, Pattern: PatternInteger},
			{Name: "review_scores_location", Kind: Integer, Pattern: PatternInteger},
			{Name: "review_scores_value", Kind: Integer, Pattern: PatternInteger},
			{Name: "reviews_per_month", Kind: Decimal, Pattern: PatternDecimal, Precision: 6, Scale: 2},
			{Name: "price_category", Kind: Text},
			{Name: "review_category", Kind: Text},
			{Name: "host_category", Kind: Text},
			{Name: "availability_category", Kind: Text},
			{Name: "room_type_simplified", Kind: Text},
			{Name: "is_professional_host", Kind: Text},
			{Name: "has_cleaning_fee", Kind: Text},
			{Name: "price_per_guest", Kind: Currency, Pattern: PatternDecimal, Precision: 10, Scale: 2},
		},
	}
}

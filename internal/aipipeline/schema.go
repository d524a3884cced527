package aipipeline

// ResponseSchema returns the strict JSON schema handed to the provider
// as response_format so every batch request decodes straight into
// domain.AIInsights without a lenient parsing pass. Strict mode
// requires every property to be listed in "required" and
// additionalProperties=false at every object level; optional fields
// are expressed as a ["<type>", "null"] union instead of being
// omitted from required.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type":                 "json_schema",
		"json_schema": map[string]any{
			"name":   "ai_insights",
			"strict": true,
			"schema": insightsSchema(),
		},
	}
}

func insightsSchema() map[string]any {
	return object(map[string]any{
		"reasoning":     str(),
		"short_label":   str(),
		"short_summary": str(),
		"summary":       str(),
		"tags":          arr(str()),
		"confidence":    typed("integer"),

		"blogger_profile":    bloggerProfileSchema(),
		"life_situation":     lifeSituationSchema(),
		"lifestyle":          lifestyleSchema(),
		"content":            contentProfileSchema(),
		"commercial":         commercialActivitySchema(),
		"audience_inference": audienceInferenceSchema(),
		"marketing_value":    marketingValueSchema(),
	})
}

func bloggerProfileSchema() map[string]any {
	return object(map[string]any{
		"estimated_age":    nullableStr(),
		"gender":           nullableStr(),
		"city":             nullableStr(),
		"profession":       nullableStr(),
		"education":        nullableStr(),
		"speaks_languages": nullableArr(str()),
		"page_type":        nullableStr(),
		"has_manager":      nullableBool(),
		"manager_contact":  nullableStr(),
		"country":          nullableStr(),
	})
}

func lifeSituationSchema() map[string]any {
	return object(map[string]any{
		"has_children":        nullableBool(),
		"children_age_group":  nullableStr(),
		"relationship_status": nullableStr(),
		"is_young_parent":     nullableBool(),
	})
}

func lifestyleSchema() map[string]any {
	return object(map[string]any{
		"has_car":            nullableBool(),
		"car_class":          nullableStr(),
		"travels_frequently": nullableBool(),
		"travel_style":       nullableStr(),
		"has_pets":           nullableBool(),
		"pet_types":          nullableArr(str()),
		"has_real_estate":    nullableBool(),
		"lifestyle_level":    nullableStr(),
	})
}

func contentProfileSchema() map[string]any {
	return object(map[string]any{
		"primary_categories":          nullableArr(str()),
		"secondary_topics":            nullableArr(str()),
		"content_language":            nullableArr(str()),
		"content_tone":                nullableStr(),
		"posts_in_russian":            nullableBool(),
		"posts_in_kazakh":             nullableBool(),
		"preferred_format":            nullableStr(),
		"content_quality":             nullableStr(),
		"uses_professional_photo":     nullableBool(),
		"has_consistent_visual_style": nullableBool(),
		"posting_frequency":           nullableStr(),
		"audience_interaction":        nullableStr(),
		"call_to_action_style":        nullableStr(),
	})
}

func commercialActivitySchema() map[string]any {
	return object(map[string]any{
		"has_brand_collaborations":  nullableBool(),
		"detected_brand_categories": nullableArr(str()),
		"detected_brands":           nullableArr(str()),
		"has_affiliate_links":       nullableBool(),
		"is_active_advertiser":      nullableBool(),
		"ad_frequency":              nullableStr(),
		"ad_format":                 nullableArr(str()),
		"has_price_list":            nullableBool(),
		"estimated_price_tier":      nullableStr(),
		"open_to_barter":            nullableBool(),
		"has_own_product":          nullableBool(),
		"own_product_type":          nullableStr(),
		"ambassador_brands":         nullableArr(str()),
	})
}

func audienceInferenceSchema() map[string]any {
	return object(map[string]any{
		"audience_male_pct":        nullableInt(),
		"audience_female_pct":      nullableInt(),
		"audience_other_pct":       nullableInt(),
		"estimated_audience_age":   nullableStr(),
		"audience_age_13_17_pct":   nullableInt(),
		"audience_age_18_24_pct":   nullableInt(),
		"audience_age_25_34_pct":   nullableInt(),
		"audience_age_35_44_pct":   nullableInt(),
		"audience_age_45_plus_pct": nullableInt(),
		"estimated_audience_geo":   nullableStr(),
		"audience_kz_pct":          nullableInt(),
		"audience_ru_pct":          nullableInt(),
		"audience_uz_pct":          nullableInt(),
		"audience_other_geo_pct":   nullableInt(),
		"geo_mentions":             nullableArr(str()),
		"estimated_audience_income": nullableStr(),
		"audience_interests":       nullableArr(str()),
		"engagement_quality":       nullableStr(),
		"comments_sentiment":       nullableStr(),
	})
}

func marketingValueSchema() map[string]any {
	return object(map[string]any{
		"best_fit_industries": nullableArr(str()),
		"not_suitable_for":    nullableArr(str()),
		"collaboration_risk":  nullableStr(),
		"brand_safety_score":  typed("integer"),
		"values_and_causes":   nullableArr(str()),
	})
}

func object(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for key := range properties {
		required = append(required, key)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func typed(t string) map[string]any     { return map[string]any{"type": t} }
func str() map[string]any               { return typed("string") }
func nullableStr() map[string]any       { return map[string]any{"type": []string{"string", "null"}} }
func nullableInt() map[string]any       { return map[string]any{"type": []string{"integer", "null"}} }
func nullableBool() map[string]any      { return map[string]any{"type": []string{"boolean", "null"}} }
func arr(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}
func nullableArr(items map[string]any) map[string]any {
	return map[string]any{"type": []string{"array", "null"}, "items": items}
}

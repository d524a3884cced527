package domain

// AIInsights is the structured object the AI provider returns for one
// blog. Fields mirror the strict JSON schema handed to the provider;
// unknown fields are rejected at decode time by the caller
// (json.Decoder.DisallowUnknownFields), not here.
type AIInsights struct {
	Reasoning    string   `json:"reasoning"`
	ShortLabel   string   `json:"short_label"`
	ShortSummary string   `json:"short_summary"`
	Summary      string   `json:"summary"`
	Tags         []string `json:"tags"`
	Confidence   int      `json:"confidence"`

	BloggerProfile    BloggerProfile    `json:"blogger_profile"`
	LifeSituation     LifeSituation     `json:"life_situation"`
	Lifestyle         Lifestyle         `json:"lifestyle"`
	Content           ContentProfile    `json:"content"`
	Commercial        CommercialActivity `json:"commercial"`
	AudienceInference AudienceInference `json:"audience_inference"`
	MarketingValue    MarketingValue    `json:"marketing_value"`

	// RefusalReason is not part of the provider schema; it is stamped
	// by the reconciler when a result is a content-policy refusal so
	// it can be persisted alongside whatever insights exist.
	RefusalReason string `json:"refusal_reason,omitempty"`
}

type BloggerProfile struct {
	EstimatedAge     string   `json:"estimated_age,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	City             string   `json:"city,omitempty"`
	Profession       string   `json:"profession,omitempty"`
	Education        string   `json:"education,omitempty"`
	SpeaksLanguages  []string `json:"speaks_languages,omitempty"`
	PageType         string   `json:"page_type,omitempty"`
	HasManager       *bool    `json:"has_manager,omitempty"`
	ManagerContact   string   `json:"manager_contact,omitempty"`
	Country          string   `json:"country,omitempty"`
}

type LifeSituation struct {
	HasChildren        *bool  `json:"has_children,omitempty"`
	ChildrenAgeGroup    string `json:"children_age_group,omitempty"`
	RelationshipStatus string `json:"relationship_status,omitempty"`
	IsYoungParent      *bool  `json:"is_young_parent,omitempty"`
}

type Lifestyle struct {
	HasCar            *bool    `json:"has_car,omitempty"`
	CarClass          string   `json:"car_class,omitempty"`
	TravelsFrequently *bool    `json:"travels_frequently,omitempty"`
	TravelStyle       string   `json:"travel_style,omitempty"`
	HasPets           *bool    `json:"has_pets,omitempty"`
	PetTypes          []string `json:"pet_types,omitempty"`
	HasRealEstate     *bool    `json:"has_real_estate,omitempty"`
	LifestyleLevel    string   `json:"lifestyle_level,omitempty"`
}

type ContentProfile struct {
	PrimaryCategories        []string `json:"primary_categories,omitempty"`
	SecondaryTopics          []string `json:"secondary_topics,omitempty"`
	ContentLanguage          []string `json:"content_language,omitempty"`
	ContentTone              string   `json:"content_tone,omitempty"`
	PostsInRussian           *bool    `json:"posts_in_russian,omitempty"`
	PostsInKazakh            *bool    `json:"posts_in_kazakh,omitempty"`
	PreferredFormat          string   `json:"preferred_format,omitempty"`
	ContentQuality           string   `json:"content_quality,omitempty"`
	UsesProfessionalPhoto    *bool    `json:"uses_professional_photo,omitempty"`
	HasConsistentVisualStyle *bool    `json:"has_consistent_visual_style,omitempty"`
	PostingFrequency         string   `json:"posting_frequency,omitempty"`
	AudienceInteraction      string   `json:"audience_interaction,omitempty"`
	CallToActionStyle        string   `json:"call_to_action_style,omitempty"`
}

type CommercialActivity struct {
	HasBrandCollaborations  *bool    `json:"has_brand_collaborations,omitempty"`
	DetectedBrandCategories []string `json:"detected_brand_categories,omitempty"`
	DetectedBrands          []string `json:"detected_brands,omitempty"`
	HasAffiliateLinks       *bool    `json:"has_affiliate_links,omitempty"`
	IsActiveAdvertiser      *bool    `json:"is_active_advertiser,omitempty"`
	AdFrequency             string   `json:"ad_frequency,omitempty"`
	AdFormat                []string `json:"ad_format,omitempty"`
	HasPriceList            *bool    `json:"has_price_list,omitempty"`
	EstimatedPriceTier      string   `json:"estimated_price_tier,omitempty"`
	OpenToBarter            *bool    `json:"open_to_barter,omitempty"`
	HasOwnProduct           *bool    `json:"has_own_product,omitempty"`
	OwnProductType          string   `json:"own_product_type,omitempty"`
	AmbassadorBrands        []string `json:"ambassador_brands,omitempty"`
}

type AudienceInference struct {
	AudienceMalePct       *int     `json:"audience_male_pct,omitempty"`
	AudienceFemalePct     *int     `json:"audience_female_pct,omitempty"`
	AudienceOtherPct      *int     `json:"audience_other_pct,omitempty"`
	EstimatedAudienceAge  string   `json:"estimated_audience_age,omitempty"`
	AudienceAge1317Pct    *int     `json:"audience_age_13_17_pct,omitempty"`
	AudienceAge1824Pct    *int     `json:"audience_age_18_24_pct,omitempty"`
	AudienceAge2534Pct    *int     `json:"audience_age_25_34_pct,omitempty"`
	AudienceAge3544Pct    *int     `json:"audience_age_35_44_pct,omitempty"`
	AudienceAge45PlusPct  *int     `json:"audience_age_45_plus_pct,omitempty"`
	EstimatedAudienceGeo  string   `json:"estimated_audience_geo,omitempty"`
	AudienceKzPct         *int     `json:"audience_kz_pct,omitempty"`
	AudienceRuPct         *int     `json:"audience_ru_pct,omitempty"`
	AudienceUzPct         *int     `json:"audience_uz_pct,omitempty"`
	AudienceOtherGeoPct   *int     `json:"audience_other_geo_pct,omitempty"`
	GeoMentions           []string `json:"geo_mentions,omitempty"`
	EstimatedAudienceIncome string `json:"estimated_audience_income,omitempty"`
	AudienceInterests     []string `json:"audience_interests,omitempty"`
	EngagementQuality     string   `json:"engagement_quality,omitempty"`
	CommentsSentiment     string   `json:"comments_sentiment,omitempty"`
}

type MarketingValue struct {
	BestFitIndustries  []string `json:"best_fit_industries,omitempty"`
	NotSuitableFor     []string `json:"not_suitable_for,omitempty"`
	CollaborationRisk  string   `json:"collaboration_risk,omitempty"`
	BrandSafetyScore   int      `json:"brand_safety_score,omitempty"`
	ValuesAndCauses    []string `json:"values_and_causes,omitempty"`
}

package ai

// ExtractionInstructions is the system prompt for the field-extraction
// model. The model must answer with a bare JSON object over the allowed
// keys; prose breaks the parser and is rejected by the fallback passes.
const ExtractionInstructions = `Return ONLY valid JSON (no prose). Keys allowed:
intent, vendor_name, target_number, user_phone, question,
order_id, date_of_purchase, bill_amount, item, reason,
hotel_name, city, stay_start, stay_end, nights, ask_price, ask_discounts,
rental_agreement_number, car_issue,
service_type, preferred_time, ask_availability.

Intent classification (choose one):
- "retail_return"   (return/refund/exchange related to a purchase/retailer like Walmart)
- "hotel_booking"   (book/reserve a hotel or ask pricing/availability/discounts)
- "rental_issue"    (car rental exchange/return/issues needing agreement number)
- "service_booking" (book/reserve a service like haircut/doctor/restaurant)
- "generic_query"   (other info-seeking calls)

Rules:
- Extract ALL fields clearly present; omit unknowns.
- Normalize booleans ask_price/ask_discounts/ask_availability: true/false.
- nights: integer if the user mentions "for X nights" (or infer from dates if both present).
- bill_amount: number only (e.g., 89.99).
- user_phone/target_number: keep as-is (strings; include '+' if present).
- Dates: keep as user-stated strings; do not invent values.

Examples:
Text: "I want to return my AirPods to Walmart, order id 12-ABC, bought on Sep 2 for $199.99. Reason: left bud dead. Call me at +1 202 555 0188."
JSON: {"intent":"retail_return","vendor_name":"Walmart","order_id":"12-ABC","date_of_purchase":"Sep 2, 2025","bill_amount":199.99,"item":"AirPods","reason":"left bud dead","user_phone":"+12025550188"}

Text: "Book Marriott Downtown in Boston from Oct 3 to Oct 6 for 3 nights. Please ask the price and if any student discounts."
JSON: {"intent":"hotel_booking","hotel_name":"Marriott Downtown","city":"Boston","stay_start":"Oct 3, 2025","stay_end":"Oct 6, 2025","nights":3,"ask_price":true,"ask_discounts":true}

Text: "Enterprise gave me a rattling car, I want to exchange it. Agreement RA-7782."
JSON: {"intent":"rental_issue","vendor_name":"Enterprise","rental_agreement_number":"RA-7782","car_issue":"rattling car"}

Text: "I'd like to book a haircut at Supercuts."
JSON: {"intent":"service_booking","vendor_name":"Supercuts","service_type":"haircut"}`

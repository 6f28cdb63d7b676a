// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package arcgis implements feed.PageFetcher for the query endpoint of an
// ArcGIS REST feature service layer, e.g.
//
//	https://services.arcgis.com/<org>/arcgis/rest/services/KSI/FeatureServer/0/query
//
// Each response page carries the layer's field metadata next to the features,
// and each feature's attributes are a JSON object keyed by field name. Paging
// is driven by the resultOffset and resultRecordCount parameters, which the
// caller's feed.Paging supplies; the server never returns more than the
// layer's maxRecordCount rows per page, which FetchLayerInfo reports.
//
// Filter predicates are expressed as a SQL-92 where clause built with Query.
package arcgis

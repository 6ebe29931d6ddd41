package ai

// ExtractPrompt is the system prompt for per-chunk graph extraction. The
// user message carries the chunk text.
const ExtractPrompt = `You are a corporate governance analyst. Read the provided chunk of a corporate governance report and extract a knowledge graph.

SCHEMA
- Nodes:
    - Company(name, isin, ticker, vatNumber)
    - Person(name, dateOfBirth, cityOfBirth, taxCode)
    - Board(type)  // type must be "board of directors" or "board of statutory auditors"
    - Committee(name)
    - Auditor(name)
    - Address(street, city, postalCode, country)
- Edges:
    - (:Person)-[:HOLDS_POSITION {title, from, to}]->(:Company)
    - (:Person)-[:MEMBER_OF {type, from, to}]->(:Board)
    - (:Person)-[:MEMBER_OF {president, from, to}]->(:Committee)  // president is "true" or "false"
    - (:Board)-[:PART_OF]->(:Company)
    - (:Committee)-[:PART_OF]->(:Company)
    - (:Company)-[:LOCATED_AT]->(:Address)
    - (:Company)-[:AUDITED_BY {from, to}]->(:Auditor)

RULES
- Extract every node and edge the chunk supports; use an empty string "" for unknown property values.
- Only extract persons with roles in the company or its governing bodies.
- The Company node is the single main company of the report; the Address node is its legal address; the Auditor node is the external auditing firm only.
- Be specific with MEMBER_OF.type (e.g. "Executive Director", "Lead Independent Director", "Chairman", "Statutory Auditor", "Alternate Auditor"). Use HOLDS_POSITION only for roles outside boards and committees (e.g. "Chief Financial Officer").
- from/to are dates of first appointment and cessation; if unsure use "". Format dates as DD-MM-YYYY.
- Omit honorifics from person names. Do not use external knowledge.
- Every node must be connected by at least one edge and carry at least one non-empty property.

ID STRATEGY
- Person: "person_<full name>" lowercase, spaces as underscores (person_john_doe).
- Company: "company_<name>"; omit legal suffixes (SpA, plc, Inc., N.V., nv).
- Board: "<type>_<company name>" where type is board_of_directors or board_of_statutory_auditors.
- Committee: "committee_<name>_<company name>"; <name> excludes the word "committee".
- Auditor: "auditor_<name>"; omit legal suffixes.
- Address: "address_<city>_<street>" with the street stripped of spaces and punctuation.
- Replace accented characters with their base character and apostrophes with underscores in IDs.`

// SearchPrompt asks the model for the URL of the latest corporate governance
// report of a company. Takes the company name as format argument.
const SearchPrompt = `Find the URL of the latest corporate governance report of the company '%s'.
Reports are usually published yearly on the company website under Investor Relations or Corporate Governance sections, as PDF or HTML.
Answer with the URL only, nothing else. If you do not know a plausible URL answer with an empty string.`
